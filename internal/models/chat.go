package models

import "time"

// Chat represents one research conversation. A chat is in exactly one of
// three states: open (!is_completed && !has_error), completed, or errored.
// The completed and errored flags are never set together.
type Chat struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	HasError    bool      `json:"has_error"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsClosed reports whether the chat is in a terminal state
func (c *Chat) IsClosed() bool {
	return c.IsCompleted || c.HasError
}

// Message is a single chat message, append-only, ordered by sequence
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ResearchSession is the server-authoritative record of an in-flight
// clarification dialogue for a chat: the original topic, the generated
// questions, and the answers collected so far.
type ResearchSession struct {
	ChatID    string    `json:"chat_id"`
	Topic     string    `json:"topic"`
	Questions []string  `json:"questions"`
	Answers   []string  `json:"answers"`
	Answered  int       `json:"answered"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemainingQuestions reports how many clarifying questions are still open
func (s *ResearchSession) RemainingQuestions() int {
	return len(s.Questions) - s.Answered
}

// CreateChatRequest is the request body for creating a chat
type CreateChatRequest struct {
	Title string `json:"title"`
}

// ResearchTopicRequest is the request body for submitting the research topic
type ResearchTopicRequest struct {
	Message string `json:"message"`
}

// ClarificationAnswerRequest is the request body for answering a clarifying
// question. The progress fields are client echoes of the stored session and
// are validated against it, never trusted.
type ClarificationAnswerRequest struct {
	Message        string   `json:"message"`
	QuestionIndex  int      `json:"questionIndex"`
	TotalQuestions int      `json:"totalQuestions"`
	OriginalTopic  string   `json:"originalTopic"`
	Questions      []string `json:"questions"`
	Answers        []string `json:"answers"`
}

// ResearchTopicResponse carries the generated title and clarifying questions
type ResearchTopicResponse struct {
	Success     bool     `json:"success"`
	Response    string   `json:"response"`
	MessageType string   `json:"messageType,omitempty"`
	Questions   []string `json:"questions,omitempty"`
	Title       string   `json:"title,omitempty"`
}

// ClarificationAnswerResponse is either an acknowledgment mid-dialogue or the
// final research pages. GeminiResearch is null when the secondary provider
// produced nothing.
type ClarificationAnswerResponse struct {
	Success        bool    `json:"success"`
	Response       string  `json:"response,omitempty"`
	MessageType    string  `json:"messageType,omitempty"`
	OpenAIResearch string  `json:"openaiResearch,omitempty"`
	GeminiResearch *string `json:"geminiResearch,omitempty"`
}

// ResearchPagesResponse is the wire shape of the final research_pages message.
// geminiResearch is serialized even when null so the frontend can tell a
// failed secondary report apart from a missing field.
type ResearchPagesResponse struct {
	Success        bool    `json:"success"`
	MessageType    string  `json:"messageType"`
	OpenAIResearch string  `json:"openaiResearch"`
	GeminiResearch *string `json:"geminiResearch"`
}

// SendEmailResponse confirms report delivery
type SendEmailResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// Message types returned to the frontend to drive the dialogue UI
const (
	MessageTypeClarifyingQuestions = "clarifying_questions"
	MessageTypeAcknowledgment      = "acknowledgment"
	MessageTypeResearchPages       = "research_pages"
)
