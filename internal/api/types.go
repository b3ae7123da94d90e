package api

// Wire types for the clinical backend REST contract. Field names mirror the
// backend's snake_case JSON exactly; nothing here is persisted locally.

// AuthTokens is the login response. Only the access token is retained by the
// console; refresh-token renewal is not implemented.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// CurrentUser is the authenticated clinician identity.
type CurrentUser struct {
	Username    string `json:"username"`
	Specialty   string `json:"specialty"`
	IsSuperuser bool   `json:"is_superuser"`
}

// CareTask is a unit of clinical work that scopes one or more chat sessions.
type CareTask struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	ClinicalPriority string  `json:"clinical_priority"`
	Specialty        string  `json:"specialty"`
	PatientReference *string `json:"patient_reference"`
	Completed        bool    `json:"completed"`
}

// CreateCareTaskRequest is the body for POST /care-tasks/.
type CreateCareTaskRequest struct {
	Title               string  `json:"title"`
	ClinicalPriority    string  `json:"clinical_priority"`
	Specialty           string  `json:"specialty"`
	PatientReference    *string `json:"patient_reference"`
	SLATargetMinutes    int     `json:"sla_target_minutes"`
	HumanReviewRequired bool    `json:"human_review_required"`
	Completed           bool    `json:"completed"`
}

// ChatHistoryItem is one persisted turn (user query + assistant answer).
// Response mode and tool are never stored here; they are re-derived from
// ExtractedFacts at read time.
type ChatHistoryItem struct {
	ID                      int                 `json:"id"`
	SessionID               string              `json:"session_id"`
	ClinicianID             *string             `json:"clinician_id"`
	EffectiveSpecialty      string              `json:"effective_specialty"`
	UserQuery               string              `json:"user_query"`
	AssistantAnswer         string              `json:"assistant_answer"`
	MatchedDomains          []string            `json:"matched_domains"`
	MatchedEndpoints        []string            `json:"matched_endpoints"`
	KnowledgeSources        []map[string]string `json:"knowledge_sources"`
	WebSources              []map[string]string `json:"web_sources"`
	MemoryFactsUsed         []string            `json:"memory_facts_used"`
	PatientHistoryFactsUsed []string            `json:"patient_history_facts_used"`
	ExtractedFacts          []string            `json:"extracted_facts"`
	CreatedAt               string              `json:"created_at"`
}

// ChatMemory is the aggregate memory snapshot for a (care task, session) pair.
// It is wholly replaced on every fetch, never merged field-by-field.
type ChatMemory struct {
	CareTaskID               int      `json:"care_task_id"`
	SessionID                *string  `json:"session_id"`
	InteractionsCount        int      `json:"interactions_count"`
	TopDomains               []string `json:"top_domains"`
	TopExtractedFacts        []string `json:"top_extracted_facts"`
	PatientReference         *string  `json:"patient_reference"`
	PatientInteractionsCount int      `json:"patient_interactions_count"`
	PatientTopDomains        []string `json:"patient_top_domains"`
	PatientTopExtractedFacts []string `json:"patient_top_extracted_facts"`
}

// SendTurnRequest is the body for POST /care-tasks/{id}/chat/messages.
type SendTurnRequest struct {
	Query                         string `json:"query"`
	SessionID                     string `json:"session_id"`
	UseWebSources                 bool   `json:"use_web_sources"`
	UseAuthenticatedSpecialtyMode bool   `json:"use_authenticated_specialty_mode"`
	UsePatientHistory             bool   `json:"use_patient_history"`
	MaxHistoryMessages            int    `json:"max_history_messages"`
	MaxPatientHistoryMessages     int    `json:"max_patient_history_messages"`
	MaxWebSources                 int    `json:"max_web_sources"`
	IncludeProtocolCatalog        bool   `json:"include_protocol_catalog"`
	ConversationMode              string `json:"conversation_mode"`
	ToolMode                      string `json:"tool_mode"`
}

// ChatResponse is the result of one turn submission. Unlike history items it
// carries response mode and tool explicitly, plus the interpretability trace.
type ChatResponse struct {
	CareTaskID              int                 `json:"care_task_id"`
	MessageID               int                 `json:"message_id"`
	SessionID               string              `json:"session_id"`
	AgentRunID              int                 `json:"agent_run_id"`
	WorkflowName            string              `json:"workflow_name"`
	ResponseMode            string              `json:"response_mode"`
	ToolMode                string              `json:"tool_mode"`
	Answer                  string              `json:"answer"`
	MatchedDomains          []string            `json:"matched_domains"`
	MatchedEndpoints        []string            `json:"matched_endpoints"`
	EffectiveSpecialty      string              `json:"effective_specialty"`
	KnowledgeSources        []map[string]string `json:"knowledge_sources"`
	WebSources              []map[string]string `json:"web_sources"`
	MemoryFactsUsed         []string            `json:"memory_facts_used"`
	PatientHistoryFactsUsed []string            `json:"patient_history_facts_used"`
	ExtractedFacts          []string            `json:"extracted_facts"`
	InterpretabilityTrace   []string            `json:"interpretability_trace"`
	NonDiagnosticWarning    string              `json:"non_diagnostic_warning"`
}
