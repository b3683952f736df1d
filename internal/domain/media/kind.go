package media

import (
	"fmt"
	"strings"
)

// Kind enum. Every kind-keyed table in the repo is checked against AllKinds
// when it is constructed, so adding a kind fails fast until it is handled.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// AllKinds lists every supported kind in a stable order.
var AllKinds = []Kind{KindImage, KindVideo, KindAudio}

func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindVideo, KindAudio:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Folder is the object-storage prefix for assets of this kind.
func (k Kind) Folder() string {
	switch k {
	case KindImage:
		return "images"
	case KindVideo:
		return "videos"
	case KindAudio:
		return "audios"
	}
	return "other"
}

// MIMEFamily is the top-level MIME type accepted for this kind.
func (k Kind) MIMEFamily() string {
	return string(k)
}

// NeedsRemoteProcessing reports whether the inference service has to finish
// processing an uploaded asset of this kind before it can be referenced.
func (k Kind) NeedsRemoteProcessing() bool {
	switch k {
	case KindVideo, KindAudio:
		return true
	}
	return false
}

// ParseKind parse string ke Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown media kind %q", s)
	}
	return k, nil
}

// MatchesMIME reports whether mime belongs to the kind's family.
func (k Kind) MatchesMIME(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return strings.HasPrefix(mime, k.MIMEFamily()+"/")
}
