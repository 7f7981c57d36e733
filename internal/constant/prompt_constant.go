package constant

const (
	// QueryRewritePrompt turns a follow-up into a self-contained question.
	// Args: chat history, latest user question.
	QueryRewritePrompt = `You rewrite follow-up questions so they can be understood without the conversation.

Chat History:
%s

Latest Question: "%s"

Instructions:
1. Resolve pronouns and references ("it", "that one", "the second") using the history.
2. Keep the language of the latest question.
3. If the question is already self-contained, return it unchanged.
4. Output ONLY the rewritten question, no quotes, no explanation.
`

	// QueryFusionPrompt asks for alternative phrasings of a search query.
	// Args: number of queries, original query.
	QueryFusionPrompt = `You are a search assistant that generates multiple search queries based on a single input query.
Generate %d search queries, one on each line, related to the following input query:
Query: %s
Queries:
`

	// RagAnswerPrompt grounds the final answer on retrieved context.
	// Args: context, question.
	RagAnswerPrompt = `You are an assistant for question-answering tasks.
Use ONLY the context below to answer the question.
If you don't know the answer, say that you don't know.
Do not use prior knowledge, do not speculate, keep the answer concise.

Context:
%s

Question: %s
Answer:
`

	// ImageQAPrompt is sent together with the retrieved images.
	// Args: question.
	ImageQAPrompt = `You are an expert at reading images. Using the pictures provided, answer the user's question.
Question: %s
Answer:
`

	// FollowUpPrompt asks for short guiding questions.
	// Args: number, user question, assistant answer.
	FollowUpPrompt = `You are good at guiding a user's thinking. Based on the user's question and the answer they received, propose %d related follow-up questions.
Reply with the questions only. Keep each question short, start every question with [Q] and end it with "?".
user_ask: %s
ai_answer: %s
helper_questions:
[Q]

Example:
user_ask: How big is China?
ai_answer: China covers about 9.6 million square kilometres, the third largest country after Russia and Canada.
helper_questions:
[Q]What are China's main landforms?
[Q]How is China's climate distributed?
[Q]Where does most of China's population live?
`

	FollowUpQuestionPrefix = "[Q]"
)
