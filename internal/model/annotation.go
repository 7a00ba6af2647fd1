package model

// Annotation is the user-owned label and pin flag for one symbol.
type Annotation struct {
	Text   string `json:"text"`
	Pinned bool   `json:"pinned"`
}
