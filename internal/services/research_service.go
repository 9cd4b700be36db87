package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"researchdesk/internal/logging"
	"researchdesk/internal/models"
)

// Fixed dialogue texts. The frontend matches on these so the wording is part
// of the API contract.
const (
	clarifyingIntro = "I'd like to help you refine your research topic. To provide you with the most relevant research guidance, I have a few clarifying questions:"
	clarifyingOutro = "Please answer these questions one by one, and I'll create a comprehensive research plan for you."

	acknowledgmentText = "Thank you for your answer. Please answer the next question."

	providerErrorText = "I'm not able to find the answer right now. Please try again."

	openAIReportHeading = "## ChatGPT (OpenAI) Research"
	geminiReportHeading = "## Gemini (Google) Research"
)

// TitleGenerator produces the chat title and clarifying questions for a
// research topic. OpenAIService implements it; tests substitute a fake.
type TitleGenerator interface {
	GenerateTitleAndQuestions(ctx context.Context, topic string) *TitleAndQuestions
}

// ResearchService drives the clarification dialogue for a chat. Each chat
// moves from open through zero or more clarifying answers to exactly one
// terminal state, completed or errored.
type ResearchService struct {
	chats     ChatStore
	messages  MessageStore
	sessions  SessionStore
	titles    TitleGenerator
	primary   ResearchProvider
	secondary ResearchProvider
	metrics   *Metrics
}

// NewResearchService creates the conversation engine
func NewResearchService(chats ChatStore, messages MessageStore, sessions SessionStore, titles TitleGenerator, primary, secondary ResearchProvider, metrics *Metrics) *ResearchService {
	return &ResearchService{
		chats:     chats,
		messages:  messages,
		sessions:  sessions,
		titles:    titles,
		primary:   primary,
		secondary: secondary,
		metrics:   metrics,
	}
}

// loadOpenChat fetches the chat, enforcing ownership and the open state.
// A chat owned by someone else reads as not found.
func (s *ResearchService) loadOpenChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chats.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, ErrChatNotFound
	}
	if chat.IsClosed() {
		return nil, ErrChatClosed
	}
	return chat, nil
}

// SubmitTopic handles the first user message of a chat. It asks the primary
// provider for a title and clarifying questions, stores the session, and
// returns the questions. On provider failure the chat is marked errored and a
// degraded payload is returned with HTTP success.
func (s *ResearchService) SubmitTopic(ctx context.Context, userID, chatID, message string) (*models.ResearchTopicResponse, error) {
	if _, err := s.loadOpenChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	if _, err := s.messages.AppendMessage(ctx, chatID, message, true); err != nil {
		return nil, fmt.Errorf("failed to store topic message: %w", err)
	}

	result := s.titles.GenerateTitleAndQuestions(ctx, message)
	if len(result.Questions) == 0 {
		return s.failTopic(ctx, chatID)
	}

	if err := s.chats.UpdateTitle(ctx, chatID, result.Title); err != nil {
		return nil, fmt.Errorf("failed to store title: %w", err)
	}

	responseText := formatClarifyingQuestions(result.Questions)
	if _, err := s.messages.AppendMessage(ctx, chatID, responseText, false); err != nil {
		return nil, fmt.Errorf("failed to store questions message: %w", err)
	}

	session := &models.ResearchSession{
		ChatID:    chatID,
		Topic:     message,
		Questions: result.Questions,
		Answers:   []string{},
		Answered:  0,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store research session: %w", err)
	}

	log.Printf("🔍 [RESEARCH] Chat %s: topic accepted, %d clarifying questions", chatID, len(result.Questions))
	return &models.ResearchTopicResponse{
		Success:     true,
		Response:    responseText,
		MessageType: models.MessageTypeClarifyingQuestions,
		Questions:   result.Questions,
		Title:       result.Title,
	}, nil
}

func (s *ResearchService) failTopic(ctx context.Context, chatID string) (*models.ResearchTopicResponse, error) {
	if _, err := s.messages.AppendMessage(ctx, chatID, providerErrorText, false); err != nil {
		return nil, fmt.Errorf("failed to store error message: %w", err)
	}
	if err := s.chats.MarkErrored(ctx, chatID); err != nil {
		return nil, fmt.Errorf("failed to mark chat errored: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ChatsErrored.Inc()
	}
	log.Printf("❌ [RESEARCH] Chat %s: topic analysis failed, chat errored", chatID)
	return &models.ResearchTopicResponse{
		Success:  true,
		Response: providerErrorText,
		Title:    "Research Topic...",
	}, nil
}

// SubmitAnswer handles one clarifying answer. The stored session decides
// whether more questions remain or the dialogue finalizes; the client's echo
// of the progress is validated against it and rejected on disagreement.
func (s *ResearchService) SubmitAnswer(ctx context.Context, userID, chatID string, req *models.ClarificationAnswerRequest) (*models.ClarificationAnswerResponse, error) {
	if _, err := s.loadOpenChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	session, err := s.sessions.FindSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := validateProgress(session, req); err != nil {
		return nil, err
	}

	if _, err := s.messages.AppendMessage(ctx, chatID, req.Message, true); err != nil {
		return nil, fmt.Errorf("failed to store answer message: %w", err)
	}

	session, err = s.sessions.RecordAnswer(ctx, chatID, req.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	if session.RemainingQuestions() > 0 {
		if _, err := s.messages.AppendMessage(ctx, chatID, acknowledgmentText, false); err != nil {
			return nil, fmt.Errorf("failed to store acknowledgment: %w", err)
		}
		log.Printf("🔍 [RESEARCH] Chat %s: answer %d/%d recorded", chatID, session.Answered, len(session.Questions))
		return &models.ClarificationAnswerResponse{
			Success:     true,
			Response:    acknowledgmentText,
			MessageType: models.MessageTypeAcknowledgment,
		}, nil
	}

	return s.finalize(ctx, userID, chatID, session)
}

// validateProgress rejects clarification requests whose echoed progress
// disagrees with the stored session.
func validateProgress(session *models.ResearchSession, req *models.ClarificationAnswerRequest) error {
	if req.TotalQuestions != 0 && req.TotalQuestions != len(session.Questions) {
		return ErrSessionMismatch
	}
	if req.QuestionIndex != session.Answered {
		return ErrSessionMismatch
	}
	return nil
}

// finalize fans out both providers concurrently and assembles the final
// report. The secondary provider runs isolated: its failure, or even a panic,
// never affects the primary result. A failed primary errors the chat and
// discards any secondary output.
func (s *ResearchService) finalize(ctx context.Context, userID, chatID string, session *models.ResearchSession) (*models.ClarificationAnswerResponse, error) {
	logger := logging.WithChat(chatID, userID)
	logger.Info("generating research reports", "questions", len(session.Questions))

	var (
		wg              sync.WaitGroup
		primaryResult   ProviderResult
		secondaryResult ProviderResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		primaryResult = s.runProvider(ctx, "openai", s.primary, session)
	}()
	go func() {
		defer wg.Done()
		secondaryResult = s.runProvider(ctx, "gemini", s.secondary, session)
	}()
	wg.Wait()

	if !primaryResult.Success {
		if _, err := s.messages.AppendMessage(ctx, chatID, providerErrorText, false); err != nil {
			return nil, fmt.Errorf("failed to store error message: %w", err)
		}
		if err := s.chats.MarkErrored(ctx, chatID); err != nil {
			return nil, fmt.Errorf("failed to mark chat errored: %w", err)
		}
		if s.metrics != nil {
			s.metrics.ChatsErrored.Inc()
		}
		logger.Error("primary report failed, chat errored")
		return &models.ClarificationAnswerResponse{Success: true, Response: providerErrorText}, nil
	}

	openaiLabeled := openAIReportHeading + "\n\n" + primaryResult.Text

	// Primary report is stored before the secondary so message order always
	// reads OpenAI first.
	if _, err := s.messages.AppendMessage(ctx, chatID, openaiLabeled, false); err != nil {
		return nil, fmt.Errorf("failed to store primary report: %w", err)
	}

	var geminiLabeled *string
	if secondaryResult.Success && secondaryResult.Text != "" {
		labeled := geminiReportHeading + "\n\n" + secondaryResult.Text
		if _, err := s.messages.AppendMessage(ctx, chatID, labeled, false); err != nil {
			return nil, fmt.Errorf("failed to store secondary report: %w", err)
		}
		geminiLabeled = &labeled
	}

	if err := s.chats.MarkCompleted(ctx, chatID); err != nil {
		return nil, fmt.Errorf("failed to mark chat completed: %w", err)
	}
	if err := s.sessions.DeleteSession(ctx, chatID); err != nil {
		logger.Warn("failed to delete session", "error", err)
	}
	if s.metrics != nil {
		s.metrics.ChatsCompleted.Inc()
	}

	logger.Info("research report completed", "gemini_included", geminiLabeled != nil)
	return &models.ClarificationAnswerResponse{
		Success:        true,
		MessageType:    models.MessageTypeResearchPages,
		OpenAIResearch: openaiLabeled,
		GeminiResearch: geminiLabeled,
	}, nil
}

// runProvider calls one provider, converting a nil provider or a panic into
// a failed result.
func (s *ResearchService) runProvider(ctx context.Context, name string, provider ResearchProvider, session *models.ResearchSession) (result ProviderResult) {
	if provider == nil {
		return ProviderResult{Success: false}
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [RESEARCH] Provider %s panicked: %v", name, r)
			result = ProviderResult{Success: false}
		}
	}()

	result = provider.GenerateResearchPage(ctx, session.Topic, session.Questions, session.Answers)
	if s.metrics != nil {
		s.metrics.ObserveProviderCall(name, result.Success)
	}
	return result
}

func formatClarifyingQuestions(questions []string) string {
	var sb strings.Builder
	sb.WriteString(clarifyingIntro)
	sb.WriteString("\n\n")
	for i, q := range questions {
		fmt.Fprintf(&sb, "%d. %s", i+1, q)
		sb.WriteString("\n\n")
	}
	sb.WriteString(clarifyingOutro)
	return sb.String()
}
