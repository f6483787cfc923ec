package dto

type AnalyzeRequest struct {
	Sender  string `json:"sender" example:"unknown"`
	Content string `json:"content" validate:"required" example:"[인증번호] 귀하의 계좌가 정지되었습니다. 아래 링크 클릭"`
}

type AnalyzeResponse struct {
	RiskScore  int    `json:"risk_score" example:"95"`
	Reason     string `json:"reason" example:"위험해요! 바로 삭제하세요."`
	Message    string `json:"message" example:"분석 완료"`
	AlertLevel string `json:"alert_level" example:"high"`
}

type AnalysisResponse struct {
	ID         int64  `json:"id"`
	Sender     string `json:"sender"`
	Content    string `json:"content"`
	RiskScore  int    `json:"risk_score"`
	Reason     string `json:"reason"`
	AlertLevel string `json:"alert_level"`
	CreatedAt  string `json:"created_at"`
}

type AnalysisListResponse struct {
	Items  []AnalysisResponse `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type IndexStatsResponse struct {
	Backend string `json:"backend" example:"local"`
	Entries int    `json:"entries" example:"1000"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
