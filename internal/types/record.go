package types

import "time"

// TestSession is the durable record of one scan's scope. A new one is
// created for every scan; older sessions keep their questions.
type TestSession struct {
	ID                 string    `gorm:"primaryKey;size:36" bson:"_id"                json:"id"`
	SourceLoginURL     string    `gorm:"size:2048"          bson:"sourceLoginUrl"     json:"sourceLoginUrl"`
	SourceTestURL      string    `gorm:"size:2048"          bson:"sourceTestUrl"      json:"sourceTestUrl"`
	Status             Status    `gorm:"size:32;index"      bson:"status"             json:"status"`
	Topic              string    `gorm:"size:255"           bson:"topic,omitempty"    json:"topic,omitempty"`
	TestName           string    `gorm:"size:255"           bson:"testName,omitempty" json:"testName,omitempty"`
	IncludeExplanation bool      `bson:"includeExplanation" json:"includeExplanation"`
	CreatedAt          time.Time `gorm:"index"              bson:"createdAt"          json:"createdAt"`
}

// Question is one extracted question belonging to a TestSession.
type Question struct {
	ID            string    `gorm:"primaryKey;size:36" bson:"_id"           json:"id"`
	TestSessionID string    `gorm:"size:36;index"      bson:"testSessionId" json:"testSessionId"`
	IndexNumber   int       `gorm:"index"              bson:"indexNumber"   json:"indexNumber"`
	QuestionText  string    `gorm:"type:text"          bson:"questionText"  json:"questionText"`
	Explanation   string    `gorm:"type:text"          bson:"explanation"   json:"explanation"`
	Hash          string    `gorm:"size:32;index"      bson:"hash"          json:"hash"`
	Choices       []Choice  `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" bson:"choices" json:"choices"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// Choice is one answer option of a Question, kept in extraction order.
type Choice struct {
	ID         string `gorm:"primaryKey;size:36" bson:"id"         json:"id"`
	QuestionID string `gorm:"size:36;index"      bson:"questionId" json:"questionId"`
	Text       string `gorm:"type:text"          bson:"text"       json:"text"`
	IsCorrect  bool   `bson:"isCorrect" json:"isCorrect"`
	Label      string `gorm:"size:16"            bson:"label"      json:"label"`
	Position   int    `bson:"position" json:"-"`
}

// SessionSummary is a TestSession together with its question count.
type SessionSummary struct {
	TestSession
	QuestionCount int `json:"questionCount"`
}

// CorrectChoices returns the choices flagged as correct, in order.
func (q *Question) CorrectChoices() []Choice {
	var out []Choice
	for _, c := range q.Choices {
		if c.IsCorrect {
			out = append(out, c)
		}
	}
	return out
}
