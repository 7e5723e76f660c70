package chatbot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/internal/llm"
	"github.com/dec-learning/platform-backend/services"
)

// systemPrompt defines the assistant persona. Document context retrieved
// for the current question is appended to it before generation.
const systemPrompt = `You are "DEC Assistant", the intelligent assistant of the "DEC Learning" platform, a learning application dedicated to preparing for the accounting expertise diploma (DEC) and the ethics of the accounting profession.

The platform offers learning themes, interactive quizzes with a three-attempt limit, a star-based points system, a blog, a discussion forum, a leaderboard and personal profiles.

You answer ONLY questions about:
1. Accounting ethics: fundamental principles, the code of ethics, professional obligations, conflicts of interest, professional secrecy and independence.
2. The DEC diploma: admission requirements, exams, the professional internship, the dissertation and career paths.
3. Using the DEC Learning application and its features.

If a question falls outside these domains, politely decline and invite the user to ask a question within them. Be clear, precise and pedagogical; structure answers with lists or paragraphs; cite regulatory sources when applicable; state clearly when you are unsure of something.`

// fallbackResponse is returned when the generation provider fails.
const fallbackResponse = "Sorry, I am currently experiencing technical difficulties. Please try again in a few moments."

// maxHistoryMessages bounds how much conversation history is replayed to
// the model.
const maxHistoryMessages = 10

// HistoryMessage is one prior turn of the conversation supplied by the
// client.
type HistoryMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the payload for both the blocking and streaming chat
// operations.
type ChatRequest struct {
	Message             string           `json:"message" validate:"required"`
	ConversationHistory []HistoryMessage `json:"conversationHistory,omitempty" validate:"omitempty,dive"`
}

// ChatResponse is the blocking chat result. Success is false when the
// fallback message was used.
type ChatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

// ContextProvider supplies grounding text for a query. An empty string
// means no relevant material was found.
type ContextProvider interface {
	GetContext(ctx context.Context, query string, limit int) string
}

// Service answers user questions, grounded on the document corpus when
// relevant material exists.
type Service struct {
	llmClient    llm.Client
	retriever    ContextProvider
	logger       *zap.Logger
	contextLimit int
}

// NewService creates a new chatbot service. The retriever may be nil, in
// which case answers are generated without document grounding.
func NewService(llmClient llm.Client, retriever ContextProvider, logger *zap.Logger, contextLimit int) *Service {
	if contextLimit <= 0 {
		contextLimit = 3
	}
	return &Service{
		llmClient:    llmClient,
		retriever:    retriever,
		logger:       logger,
		contextLimit: contextLimit,
	}
}

// Chat generates a complete answer. Provider failures degrade to a fixed
// fallback message rather than an error.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages, err := s.buildMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := s.llmClient.Complete(ctx, messages)
	if err != nil {
		s.logger.Error("chat completion failed", zap.Error(err))
		return &ChatResponse{Response: fallbackResponse, Success: false}, nil
	}

	return &ChatResponse{Response: answer, Success: true}, nil
}

// ChatStream generates an answer incrementally, invoking onDelta for each
// content fragment. Document context is retrieved before streaming
// starts.
func (s *Service) ChatStream(ctx context.Context, req ChatRequest, onDelta func(content string) error) error {
	messages, err := s.buildMessages(ctx, req)
	if err != nil {
		return err
	}

	if err := s.llmClient.Stream(ctx, messages, onDelta); err != nil {
		s.logger.Error("chat streaming failed", zap.Error(err))
		return services.WrapProvider("response generation failed", err)
	}
	return nil
}

// buildMessages assembles the prompt: persona plus retrieved context,
// the last turns of conversation history, then the current question.
func (s *Service) buildMessages(ctx context.Context, req ChatRequest) ([]llm.Message, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, services.ErrEmptyMessage
	}

	system := systemPrompt
	if s.retriever != nil {
		if docContext := s.retriever.GetContext(ctx, message, s.contextLimit); docContext != "" {
			system += docContext
		}
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	history := req.ConversationHistory
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleUser, llm.RoleAssistant:
			messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
		}
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})
	return messages, nil
}
