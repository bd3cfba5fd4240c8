package core

import (
	"strings"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// Content is what a topic shows once selected. It is one of PerLevel,
// Branch or Plain.
type Content interface {
	isContent()
}

// MediaKind tells how per-level media is referenced.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaFile           // uploaded file reference
	MediaURL            // external link
)

// MediaRef points at the video for one amputation level.
type MediaRef struct {
	Kind MediaKind
	Ref  string
}

// PerLevel is the video and description a topic holds for the selected level.
type PerLevel struct {
	Media       MediaRef
	Description string
}

// Branch is a topic whose children are listed as the next choices.
type Branch struct {
	Children []*models.Topic
}

// Plain is a childless topic shown by its description.
type Plain struct {
	Description string
}

func (PerLevel) isContent() {}
func (Branch) isContent()   {}
func (Plain) isContent()    {}

// ResolveContent decides what selecting topic shows. Per-level content
// applies only when both a limb and a level are selected; an uploaded file
// wins over a link for the same level.
func ResolveContent(topic *models.Topic, limb models.Limb, level string) Content {
	switch {
	case limb != "" && level != "" && topic.HasPerLevelContent():
		return PerLevel{
			Media:       levelMedia(topic, level),
			Description: strings.TrimSpace(topic.DescriptionByLevel[level]),
		}
	case topic.HasChildren():
		return Branch{Children: topic.Subthemes}
	default:
		return Plain{Description: strings.TrimSpace(topic.Description)}
	}
}

func levelMedia(topic *models.Topic, level string) MediaRef {
	if ref := topic.FilesByLevel[level]; ref != "" {
		return MediaRef{Kind: MediaFile, Ref: ref}
	}
	if url := topic.VideosByLevel[level]; url != "" {
		return MediaRef{Kind: MediaURL, Ref: url}
	}
	return MediaRef{Kind: MediaNone}
}
