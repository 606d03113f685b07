package essay

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/admitlens/core/internal/models"
)

// Lexical signals for the deterministic analyzer. These regexes and the
// thresholds below are the behavioral contract; the surrounding copy is not.
var (
	wordRe      = regexp.MustCompile(`\w+`)
	passiveRe   = regexp.MustCompile(`(?i)\b(is|was|were|be|been|being|are)\s+\w+ed\b`)
	punctRe     = regexp.MustCompile(`[,;:]`)
	connectorRe = regexp.MustCompile(`(?i)\b(however|moreover|furthermore|nevertheless)\b`)
	narrativeRe = regexp.MustCompile(`(?i)\b(learned|realized|decided|challenge|impact|result|led|built|launched|grew|revenue|team)\b`)
	sentenceRe  = regexp.MustCompile(`[.!?]+\s`)
)

// WordCount counts word-boundary tokens in the essay.
func WordCount(essay string) int {
	return len(wordRe.FindAllString(strings.TrimSpace(essay), -1))
}

// Analyze produces Feedback from lexical heuristics alone. It is a total
// function: every essay yields a schema-valid Feedback without I/O.
func Analyze(essay string) *models.Feedback {
	wc := WordCount(essay)
	passive := passiveRe.MatchString(essay)
	longish := punctRe.MatchString(essay) || connectorRe.MatchString(essay)
	story := narrativeRe.MatchString(essay)

	summary := []string{
		fmt.Sprintf("Length ~%d words.", wc),
		pick(passive, "Voice drifts passive—prefer active.", "Mostly active voice."),
		"Tighten long sentences and add explicit transitions.",
		pick(story,
			"Good action/outcome signals—add concrete metrics.",
			"Add a specific challenge, decision, and measurable outcome."),
	}

	clarityHighlights := []models.FeedbackItem{}
	if longish {
		clarityHighlights = append(clarityHighlights, models.FeedbackItem{
			Issue:      "Some sentences are long/complex.",
			Suggestion: "Split to 15–20 words; cut filler.",
			Example:    "Turn multi-clause lines into two sentences.",
		})
	} else {
		clarityHighlights = append(clarityHighlights, models.FeedbackItem{
			Issue:      "Sentences are reasonably sized.",
			Suggestion: "Scan for jargon; use plain words.",
		})
	}
	if passive {
		clarityHighlights = append(clarityHighlights, models.FeedbackItem{
			Issue:      "Passive voice appears.",
			Suggestion: "Use active subject–verb phrasing.",
			Example:    "'I led the team' vs 'The team was led by me'.",
		})
	} else {
		clarityHighlights = append(clarityHighlights, models.FeedbackItem{
			Issue:      "Voice is mostly active.",
			Suggestion: "Keep verbs vivid and specific.",
		})
	}

	structureHighlights := []models.FeedbackItem{
		{
			Issue:      "Intro–body–conclusion can be sharper.",
			Suggestion: "Hook + context → 2–3 body paras (problem→action→result) → reflection.",
		},
		{
			Issue:      "Transitions may be implicit.",
			Suggestion: "Use signposts: 'First', 'Next', 'Finally' and link paragraphs.",
		},
	}

	storytellingHighlights := []models.FeedbackItem{}
	if story {
		storytellingHighlights = append(storytellingHighlights, models.FeedbackItem{
			Issue:      "Action/outcomes present but could be specific.",
			Suggestion: "Add 1–2 metrics and a clear moment of change.",
		})
	} else {
		storytellingHighlights = append(storytellingHighlights, models.FeedbackItem{
			Issue:      "Feels descriptive over narrative.",
			Suggestion: "Add challenge, your decision, and outcome (e.g., +18% revenue).",
		})
	}
	storytellingHighlights = append(storytellingHighlights, models.FeedbackItem{
		Issue:      "Reflection may be brief.",
		Suggestion: "State what you learned and how it shapes your MBA goals.",
	})

	structureBonus := 0
	if wc > 250 && wc < 900 {
		structureBonus = 1
	}
	storyScore := 3
	if story {
		storyScore = 4
	}
	passivePenalty := 0
	if passive {
		passivePenalty = 1
	}
	complexityPenalty := 0
	if longish {
		complexityPenalty = 1
	}

	return &models.Feedback{
		Summary: summary,
		Buckets: models.FeedbackBuckets{
			Clarity: models.BucketFeedback{
				Score:      ClampScore(5 - passivePenalty - complexityPenalty),
				Highlights: clarityHighlights,
			},
			Structure: models.BucketFeedback{
				Score:      ClampScore(3 + structureBonus),
				Highlights: structureHighlights,
			},
			Storytelling: models.BucketFeedback{
				Score:      ClampScore(storyScore),
				Highlights: storytellingHighlights,
			},
		},
		ReadingLevel: readingLevel(essay, wc),
	}
}

// ClampScore normalizes a bucket score into [1,5].
func ClampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// readingLevel maps average words per sentence to four descriptive bands.
func readingLevel(essay string, wc int) string {
	parts := sentenceRe.Split(essay, -1)
	sentences := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences++
		}
	}

	avg := float64(wc)
	if sentences > 0 {
		avg = float64(wc) / float64(sentences)
	}

	switch {
	case avg < 12:
		return "Easy (Grade ~6–8)"
	case avg < 18:
		return "Moderate (Grade ~9–10)"
	case avg < 24:
		return "Challenging (Grade ~11–12)"
	default:
		return "Dense (College+)"
	}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
