package session

import "strings"

// Historical turns do not store their response mode or tool structurally; the
// backend encodes them as tag strings inside extracted_facts. The functions
// here are the single projection from those tags back to typed labels, applied
// at read time and never cached into the entity.

// ResponseMode labels how a turn was answered.
type ResponseMode string

const (
	ResponseGeneral  ResponseMode = "general"
	ResponseClinical ResponseMode = "clinical"
)

// ConversationMode is the user-chosen conversation steering for a submission.
type ConversationMode string

const (
	ModeAuto     ConversationMode = "auto"
	ModeGeneral  ConversationMode = "general"
	ModeClinical ConversationMode = "clinical"
)

// ToolMode identifies which assistant tool handled a turn.
type ToolMode string

const (
	ToolChat       ToolMode = "chat"
	ToolMedication ToolMode = "medication"
	ToolCases      ToolMode = "cases"
	ToolTreatment  ToolMode = "treatment"
	ToolDeepSearch ToolMode = "deep_search"
	ToolImages     ToolMode = "images"
)

// ToolInfo describes a tool for display.
type ToolInfo struct {
	Key   ToolMode
	Label string
	Hint  string
}

// ToolCatalog is the fixed set of assistant tools, in display order.
var ToolCatalog = []ToolInfo{
	{Key: ToolChat, Label: "Chat", Hint: "General or clinical conversation"},
	{Key: ToolMedication, Label: "Medication", Hint: "Dosing schemes and drug safety"},
	{Key: ToolCases, Label: "Cases", Hint: "Pathways by clinical picture"},
	{Key: ToolTreatment, Label: "Treatment", Hint: "Staged operational plan"},
	{Key: ToolDeepSearch, Label: "Deep search", Hint: "Extended query over allowed web sources"},
	{Key: ToolImages, Label: "Images", Hint: "Image support and clinical correlation"},
}

// LookupTool returns the catalog entry for a key, defaulting to chat.
func LookupTool(key ToolMode) ToolInfo {
	for _, tool := range ToolCatalog {
		if tool.Key == key {
			return tool
		}
	}
	return ToolCatalog[0]
}

// responseModeMarker and toolFactPrefix are the backend's tag spellings.
const (
	responseModeMarker = "modo_respuesta:general"
	toolFactPrefix     = "herramienta:"
)

// InferResponseMode derives the response mode of a historical turn from its
// extracted facts. Any fact containing the general-mode marker (substring, not
// exact match) means general; everything else is clinical.
func InferResponseMode(facts []string) ResponseMode {
	for _, fact := range facts {
		if strings.Contains(fact, responseModeMarker) {
			return ResponseGeneral
		}
	}
	return ResponseClinical
}

// InferTool derives the tool of a historical turn from its extracted facts:
// the first fact with the tool prefix names the candidate, which must be one
// of the enumerated keys. Unknown candidates and absent facts default to chat.
func InferTool(facts []string) ToolMode {
	for _, fact := range facts {
		if !strings.HasPrefix(fact, toolFactPrefix) {
			continue
		}
		candidate := ToolMode(strings.TrimPrefix(fact, toolFactPrefix))
		for _, tool := range ToolCatalog {
			if tool.Key == candidate {
				return candidate
			}
		}
		return ToolChat
	}
	return ToolChat
}

// TraceValue reads a key from an interpretability trace, a flat list of
// key=value strings. Returns "n/a" when the key is absent.
func TraceValue(trace []string, key string) string {
	prefix := key + "="
	for _, entry := range trace {
		if strings.HasPrefix(entry, prefix) {
			return strings.TrimPrefix(entry, prefix)
		}
	}
	return "n/a"
}
