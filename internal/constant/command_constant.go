package constant

// Literal control tokens exchanged over the chat sockets.
// Clients discover them through GET /api/config/command.
const (
	CommandDoneFromServe        = "[chat_stream_serve_done]"
	CommandStopFromClient       = "[chat_stream_client_stop]"
	CommandStreamStartFromServe = "[chat_stream_serve_start]"
	CommandStoppedFromServe     = "[chat_stream_serve_stopped]"
	CommandErrorFromServe       = "[chat_stream_serve_error]"

	RagParseQuestionStart = "[rag_parse_question_start]"
	RagParseQuestionDone  = "[rag_parse_question_done]"
	RagRetrieveChunkStart = "[retrieve_chunk_start]"
	RagRetrieveChunkDone  = "[retrieve_chunk_done]"
	RagRerankChunkStart   = "[rerank_chunk_start]"
	RagRerankChunkDone    = "[rerank_chunk_done]"
	RagEventImageQAStart  = "[generate_image_response_start]"
	RagEventImageQADone   = "[generate_image_response_done]"
	RagEventGenerateStart = "[generate_final_response_start]"
)

// CommandConfig is the token catalogue served to clients.
func CommandConfig() map[string]string {
	return map[string]string{
		"command_done_from_serve":         CommandDoneFromServe,
		"command_stop_from_client":        CommandStopFromClient,
		"command_stream_start_from_serve": CommandStreamStartFromServe,
		"command_stopped_from_serve":      CommandStoppedFromServe,
		"command_error_from_serve":        CommandErrorFromServe,
		"rag_parse_question_start":        RagParseQuestionStart,
		"rag_parse_question_done":         RagParseQuestionDone,
		"rag_retrieve_chunk_start":        RagRetrieveChunkStart,
		"rag_retrieve_chunk_done":         RagRetrieveChunkDone,
		"rag_rerank_chunk_start":          RagRerankChunkStart,
		"rag_rerank_chunk_done":           RagRerankChunkDone,
		"rag_event_image_qa_start":        RagEventImageQAStart,
		"rag_event_image_qa_done":         RagEventImageQADone,
		"rag_event_generate_start":        RagEventGenerateStart,
	}
}
