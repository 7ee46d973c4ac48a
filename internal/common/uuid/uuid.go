package uuid

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUID hands out ids for players, users and games.
type UUID interface {
	NewUUID() string
}

type DefaultUUID struct{}

func New() *DefaultUUID {
	return &DefaultUUID{}
}

func (d *DefaultUUID) NewUUID() string {
	return uuid.New().String()
}

// Sequence returns prefix-1, prefix-2, ... and is meant for tests.
type Sequence struct {
	Prefix string
	n      atomic.Int64
}

func (s *Sequence) NewUUID() string {
	return s.Prefix + "-" + strconv.FormatInt(s.n.Add(1), 10)
}
