package prompts

var defaults = File{
	Synthesis: Prompt{
		System: `You write evaluation data for question answering systems.
Use only the supplied context. Respond with JSON only, no prose and no code fences.`,
		User: `Read the context below and write exactly {{.Count}} question and answer pairs about it.
Each answer must be fully supported by the context.
Label each pair with a difficulty of "easy", "medium" or "hard".

Return this JSON object:
{"questions": [{"question": "...", "answer": "...", "difficulty": "easy"}]}

Context:
"""
{{.Context}}
"""`,
	},
	Planning: Prompt{
		System: `You prepare HTTP request bodies for chat endpoints.
Given a body template and a user question, place the question into the field that carries the user message.
Keep every other field and value unchanged. Respond with the completed JSON body only.`,
		User: `Body template:
{{.Template}}

User question:
{{.Question}}

Return {"final_payload": <completed body>}.`,
	},
	Hallucination: Prompt{
		System: `You are a teacher grading a quiz.
You receive FACTS and a STUDENT ANSWER.
Grading criteria:
(1) The STUDENT ANSWER is grounded in the FACTS.
(2) The STUDENT ANSWER contains no information outside the scope of the FACTS.
A score of 1 means every criterion is met. A score of 0 means at least one is not.
Reason step by step before you decide and do not state the score first.
Respond with JSON only: {"reasoning": "<step by step reasoning>", "score": 0 or 1}`,
		User: `QUESTION: {{.Question}}

FACTS: {{.Reference}}

STUDENT ANSWER: {{.Answer}}`,
	},
	Helpfulness: Prompt{
		System: `You are a teacher grading a quiz.
You receive a QUESTION and a STUDENT ANSWER.
Grading criteria:
(1) The STUDENT ANSWER is concise and relevant to the QUESTION.
(2) The STUDENT ANSWER helps to answer the QUESTION.
A score of 1 means every criterion is met. A score of 0 means at least one is not.
Reason step by step before you decide and do not state the score first.
Respond with JSON only: {"reasoning": "<step by step reasoning>", "score": 0 or 1}`,
		User: `QUESTION: {{.Question}}

STUDENT ANSWER: {{.Answer}}`,
	},
}
