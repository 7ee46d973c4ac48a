package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type AvatarKind string

const (
	AvatarEmoji AvatarKind = "emoji"
	AvatarPhoto AvatarKind = "photo"
)

// Avatar is either an emoji or a reference to an uploaded photo, never both.
type Avatar struct {
	Kind  AvatarKind `json:"kind"`
	Value string     `json:"value"`
}

func Emoji(codepoint string) Avatar { return Avatar{Kind: AvatarEmoji, Value: codepoint} }
func Photo(ref string) Avatar       { return Avatar{Kind: AvatarPhoto, Value: ref} }

var DefaultAvatar = Emoji("🎨")

const (
	maxEmojiRunes = 16
	maxPhotoRef   = 512
)

func (a Avatar) IsZero() bool {
	return a.Kind == "" && a.Value == ""
}

func (a Avatar) Validate() error {
	switch a.Kind {
	case AvatarEmoji:
		n := utf8.RuneCountInString(a.Value)
		if n == 0 || n > maxEmojiRunes || strings.IndexFunc(a.Value, unicode.IsSpace) >= 0 {
			return ErrInvalidAvatar
		}
	case AvatarPhoto:
		if a.Value == "" || len(a.Value) > maxPhotoRef {
			return ErrInvalidAvatar
		}
	default:
		return ErrInvalidAvatar
	}
	return nil
}

// String encodes the avatar as "<kind>:<value>" for storage.
func (a Avatar) String() string {
	return string(a.Kind) + ":" + a.Value
}

// ParseAvatar reverses String.
func ParseAvatar(s string) (Avatar, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return Avatar{}, ErrInvalidAvatar
	}
	a := Avatar{Kind: AvatarKind(kind), Value: value}
	if err := a.Validate(); err != nil {
		return Avatar{}, err
	}
	return a, nil
}
