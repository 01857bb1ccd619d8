package types

import "time"

// SelectorMap holds per-site selector overrides. The crawler itself runs
// the fixed heuristics; profiles are stored for operators and tooling.
type SelectorMap struct {
	QuestionContainer string `bson:"questionContainer,omitempty" json:"questionContainer,omitempty"`
	QuestionText      string `bson:"questionText,omitempty"      json:"questionText,omitempty"`
	ChoiceContainer   string `bson:"choiceContainer,omitempty"   json:"choiceContainer,omitempty"`
	ChoiceItem        string `bson:"choiceItem,omitempty"        json:"choiceItem,omitempty"`
	CorrectMarker     string `bson:"correctMarker,omitempty"     json:"correctMarker,omitempty"`
	Explanation       string `bson:"explanation,omitempty"       json:"explanation,omitempty"`
	NextButton        string `bson:"nextButton,omitempty"        json:"nextButton,omitempty"`
}

// SiteProfile names a quiz site by domain pattern.
type SiteProfile struct {
	ID            string       `gorm:"primaryKey;size:36"         bson:"_id"                   json:"id"`
	Name          string       `gorm:"size:255"                   bson:"name"                  json:"name"`
	DomainPattern string       `gorm:"size:255;index"             bson:"domainPattern"         json:"domainPattern"`
	SelectorMap   *SelectorMap `gorm:"type:text;serializer:json"  bson:"selectorMap,omitempty" json:"selectorMap,omitempty"`
	CreatedAt     time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updatedAt" json:"updatedAt"`
}
