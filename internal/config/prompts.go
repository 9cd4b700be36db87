package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the provider prompt templates loaded from prompts.yaml.
// Templates use fmt-style %s placeholders documented per field.
type Prompts struct {
	// TitleAndQuestions takes the research topic.
	TitleAndQuestions string `yaml:"title_and_questions"`
	// ResearchPage takes the original topic and the Q&A context block.
	ResearchPage string `yaml:"research_page"`
	// GeminiResearchPage takes the original topic and the Q&A context block.
	GeminiResearchPage string `yaml:"gemini_research_page"`
	// ReportSummary takes the combined report markdown.
	ReportSummary string `yaml:"report_summary"`
}

// LoadPrompts loads prompt templates from a YAML file
func LoadPrompts(filePath string) (*Prompts, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts Prompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	if prompts.TitleAndQuestions == "" || prompts.ResearchPage == "" {
		return nil, fmt.Errorf("prompts file is missing required templates")
	}

	return &prompts, nil
}

// DefaultPrompts returns the built-in prompt templates used when no
// prompts.yaml override is present.
func DefaultPrompts() *Prompts {
	return &Prompts{
		TitleAndQuestions:  defaultTitleAndQuestionsPrompt,
		ResearchPage:       defaultResearchPagePrompt,
		GeminiResearchPage: defaultGeminiResearchPagePrompt,
		ReportSummary:      defaultReportSummaryPrompt,
	}
}

const defaultTitleAndQuestionsPrompt = `You are a highly intelligent research assistant. Your job is to analyze the given research topic and do two things:

1. Generate a clear, descriptive research title (3-8 words) that captures the essence of the topic.
2. Generate 2-4 thoughtful clarifying questions that would help refine or better understand the user's research focus.

Clarifying questions should explore possible ambiguities or missing details. For example, if the topic is "cricket", ask questions like:
- "Are you focusing on a particular team, tournament, or the sport in general?"
- "Do you want to study cricket from a historical, statistical, or cultural perspective?"

Research Topic: "%s"

Return your response strictly as a JSON object in this format:
{
  "title": "Your generated title here",
  "questions": ["Question 1", "Question 2", "Question 3"]
}

Guidelines:
- The title must be concise, specific, and relevant to the topic. If the topic is too vague, end the title with "..." to indicate it needs clarification.
- The questions must aim to narrow down scope, specify intent, or clarify focus.
- Do NOT include any text, notes, or explanations outside the JSON.`

const defaultResearchPagePrompt = `You are an expert research assistant. Using the original research topic and the clarifying questions and answers provided, generate a complete, professional research page.

Original Research Topic:
"%s"

Clarifying Questions and Answers:
%s

Your goal is to produce a refined, detailed research document that demonstrates academic depth and logical structure.

The research page must include the following sections:

1. **Refined Research Question or Topic** — Rewrite the research topic into a precise and well-defined question or statement based on the clarifications.
2. **Background & Context** — Provide a brief overview of the topic's importance, relevance, and background.
3. **Research Objectives** — Clearly outline 3-5 key objectives or goals of the research.
4. **Proposed Methodology** — Suggest suitable research methods (qualitative, quantitative, experimental, etc.) and justify why they fit the topic.
5. **Scope & Limitations** — Define the scope of the study, including what will and will not be covered, and mention any foreseeable challenges.
6. **Key Considerations** — Highlight ethical, practical, or contextual considerations relevant to the research.
7. **Potential Sources & Further Directions** — List suggested data sources, references, and possible future extensions of the study.
8. **Expected Outcomes or Insights** — Briefly describe the potential results or contributions this research could make.

Formatting requirements:
- Return the entire research page in **Markdown format**.
- Use clear section headings (#, ##, ###, etc.) for readability.
- Maintain a **formal, academic tone** suitable for professional or university-level research.
- Do **not** include any preamble, commentary, or explanations outside the research page.

Output only the Markdown-formatted research page.`

const defaultGeminiResearchPagePrompt = `You are a research assistant. Create a comprehensive research page based on the original research topic and the clarifying questions and answers provided.

Original Research Topic: "%s"

Clarifying Questions and Answers:
%s

Create a well-structured research page that includes:
1. A refined research question/topic based on the clarifications
2. Key research objectives
3. Suggested research methodology
4. Important considerations and scope
5. Potential sources and directions for further research

Format the response in markdown.`

const defaultReportSummaryPrompt = `Summarize the following combined research (includes sections from ChatGPT and Gemini) into 2 to 3 concise paragraphs, totaling about 150 to 200 words. Use neutral, professional tone. Do not include headings or lists.

CONTENT START
%s
CONTENT END`
