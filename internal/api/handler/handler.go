package handler

import "exam-bank/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Question *QuestionHandler
	Tag      *TagHandler
	Rule     *RuleHandler
	Paper    *PaperHandler
	Log      *LogHandler
	AI       *AIHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Question: NewQuestionHandler(svc.Question),
		Tag:      NewTagHandler(svc.Tag),
		Rule:     NewRuleHandler(svc.Rule),
		Paper:    NewPaperHandler(svc.Paper),
		Log:      NewLogHandler(svc.Log),
		AI:       NewAIHandler(svc.AI, svc.Parser),
	}
}
