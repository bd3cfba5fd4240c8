package models

// Topic is one node of the content tree. A topic with subthemes is a branch;
// a topic carrying per-level maps or a plain description is a leaf. Both may
// coexist, in which case navigation prefers the per-level content.
type Topic struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Level              int               `json:"level"`
	Subthemes          []*Topic          `json:"subthemes,omitempty"`
	VideosByLevel      map[string]string `json:"videos_by_level,omitempty"`
	FilesByLevel       map[string]string `json:"files_by_level,omitempty"`
	DescriptionByLevel map[string]string `json:"description_by_level,omitempty"`
	Description        string            `json:"description,omitempty"`
}

// HasChildren reports whether the topic is a branch.
func (t *Topic) HasChildren() bool {
	return t != nil && len(t.Subthemes) > 0
}

// HasPerLevelContent reports whether the topic carries a video or file map,
// even an empty one.
func (t *Topic) HasPerLevelContent() bool {
	return t != nil && (t.VideosByLevel != nil || t.FilesByLevel != nil)
}

// TopicTree is the persisted document: { "themes": [...] }.
type TopicTree struct {
	Themes []*Topic `json:"themes"`
}

// Well-known topic identifiers.
const (
	RootTopicID = "t1"

	amputationSelectorSuffix = "_amputation_level"
	questionsSuffix          = "_questions"
)

// AmputationSelectorID returns the id of the limb's amputation level selector.
func AmputationSelectorID(limb Limb) string {
	return string(limb) + amputationSelectorSuffix
}

// QuestionsID returns the id of the limb's questions section.
func QuestionsID(limb Limb) string {
	return string(limb) + questionsSuffix
}

// LimbForQuestionsID returns the limb owning a questions section id.
func LimbForQuestionsID(id string) (Limb, bool) {
	for _, limb := range Limbs() {
		if QuestionsID(limb) == id {
			return limb, true
		}
	}
	return "", false
}

// IsAmputationSelectorID reports whether id is one of the limb level selectors.
func IsAmputationSelectorID(id string) bool {
	for _, limb := range Limbs() {
		if AmputationSelectorID(limb) == id {
			return true
		}
	}
	return false
}

// IsStructuralID reports whether id belongs to the fixed skeleton of the tree
// (root, limbs, selectors, level leaves and questions sections). Structural
// topics are never deleted by the admin flows.
func IsStructuralID(id string) bool {
	if id == RootTopicID {
		return true
	}
	if _, ok := ParseLimb(id); ok {
		return true
	}
	if IsAmputationSelectorID(id) || IsLevelID(id) {
		return true
	}
	_, ok := LimbForQuestionsID(id)
	return ok
}

// Clone returns a deep copy of the topic and its subtree.
func (t *Topic) Clone() *Topic {
	if t == nil {
		return nil
	}
	c := *t
	c.VideosByLevel = cloneMap(t.VideosByLevel)
	c.FilesByLevel = cloneMap(t.FilesByLevel)
	c.DescriptionByLevel = cloneMap(t.DescriptionByLevel)
	if t.Subthemes != nil {
		c.Subthemes = make([]*Topic, len(t.Subthemes))
		for i, child := range t.Subthemes {
			c.Subthemes[i] = child.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the document.
func (d *TopicTree) Clone() *TopicTree {
	if d == nil {
		return nil
	}
	c := &TopicTree{Themes: make([]*Topic, len(d.Themes))}
	for i, t := range d.Themes {
		c.Themes[i] = t.Clone()
	}
	return c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
