// Package scoring turns extracted portfolio signals into component scores
// and critique text. The engine is a pure function: no network, no
// randomness, no clock. Identical signals always produce byte-identical
// output, which is what makes the pipeline reproducible without an external
// model service.
//
// The scoring contract, stable across versions:
//
//	visual, ux, communication: fixed additive bands over structural counts
//	  and vocabulary hits (see the band tables below), clamped to [0,100]
//	overall      = round(0.35*visual + 0.40*ux + 0.25*communication),
//	               rounded half away from zero
//	hireability  = clamp(overall + min(len(keywords), 5))
//	verdict      : hireability >= 85 top_tier | >= 75 strong |
//	               >= 60 developing | else emerging
//	seniority    : overall >= 90 Lead/Principal | >= 80 Senior |
//	               >= 70 Mid-Level | >= 60 Junior/Mid | else Junior
package scoring

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"portlens/internal/domain"
	"portlens/internal/extractor"
)

// Engine is the deterministic heuristic scorer. It satisfies the narrow
// signals-to-result contract the dispatcher consumes, so a remote provider
// could replace it without touching the state machine.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

var processVocab = []string{
	"research", "usability", "wireframe", "persona", "prototype",
	"iteration", "testing", "accessibility", "journey", "user",
}

var storyVocab = []string{
	"impact", "result", "outcome", "metric", "improved", "increased",
	"launched", "collaborated",
}

// Score maps signals to the analysis result. JobID and CompletedAt are left
// zero; they belong to the job lifecycle, not to scoring.
func (e *Engine) Score(s *extractor.Signals) *domain.AnalysisResult {
	text := strings.ToLower(s.Title + " " + s.Description + " " + s.Text)

	visual := e.visualScore(s)
	ux := e.uxScore(s, text)
	communication := e.communicationScore(s, text)

	overall := int(math.Round(0.35*float64(visual) + 0.40*float64(ux) + 0.25*float64(communication)))
	hireability := clamp(overall + minInt(len(s.Keywords), 5))

	platform := detectPlatform(s.SourceURL)
	specialization := detectSpecialization(text)

	res := &domain.AnalysisResult{
		VisualScore:        visual,
		UXScore:            ux,
		CommunicationScore: communication,
		OverallScore:       overall,
		HireabilityScore:   hireability,
		Keywords:           s.Keywords,
		Verdict:            verdictFor(hireability),
		Seniority:          seniorityFor(overall),
	}

	c := critiqueContext{
		signals:        s,
		platform:       platform,
		specialization: specialization,
		seed:           critiqueSeed(s),
	}
	res.Strengths = c.strengths(visual, ux, communication)
	res.Weaknesses = c.weaknesses(visual, ux, communication)
	res.Recommendations = c.recommendations(text)
	return res
}

// visualScore bands:
//
//	base 55
//	images   >=12:+20  >=6:+14  >=2:+8  >=1:+4
//	headings >=10:+10  >=5:+7   >=1:+3
//	description present +5, title present +3
func (e *Engine) visualScore(s *extractor.Signals) int {
	score := 55
	switch {
	case s.ImageCount >= 12:
		score += 20
	case s.ImageCount >= 6:
		score += 14
	case s.ImageCount >= 2:
		score += 8
	case s.ImageCount >= 1:
		score += 4
	}
	switch {
	case s.HeadingCount >= 10:
		score += 10
	case s.HeadingCount >= 5:
		score += 7
	case s.HeadingCount >= 1:
		score += 3
	}
	if s.Description != "" {
		score += 5
	}
	if s.Title != "" {
		score += 3
	}
	return clamp(score)
}

// uxScore bands:
//
//	base 50
//	process vocabulary hit +4 each, capped at +32
//	"case stud" mention +8
//	headings >=5 +5
func (e *Engine) uxScore(s *extractor.Signals, text string) int {
	score := 50
	hits := 0
	for _, w := range processVocab {
		if strings.Contains(text, w) {
			hits++
		}
	}
	score += minInt(hits*4, 32)
	if strings.Contains(text, "case stud") {
		score += 8
	}
	if s.HeadingCount >= 5 {
		score += 5
	}
	return clamp(score)
}

// communicationScore bands:
//
//	base 50
//	words    >=1200:+15  >=600:+10  >=250:+5
//	description present +10, title present +2
//	story vocabulary hit +3 each, capped at +18
func (e *Engine) communicationScore(s *extractor.Signals, text string) int {
	score := 50
	switch {
	case s.WordCount >= 1200:
		score += 15
	case s.WordCount >= 600:
		score += 10
	case s.WordCount >= 250:
		score += 5
	}
	if s.Description != "" {
		score += 10
	}
	if s.Title != "" {
		score += 2
	}
	hits := 0
	for _, w := range storyVocab {
		if strings.Contains(text, w) {
			hits++
		}
	}
	score += minInt(hits*3, 18)
	return clamp(score)
}

func verdictFor(hireability int) string {
	switch {
	case hireability >= 85:
		return "top_tier"
	case hireability >= 75:
		return "strong"
	case hireability >= 60:
		return "developing"
	default:
		return "emerging"
	}
}

func seniorityFor(overall int) string {
	switch {
	case overall >= 90:
		return "Lead/Principal - Demonstrates top-tier craft and strategic thinking."
	case overall >= 80:
		return "Senior - Strong IC ready for complex, ambiguous problems."
	case overall >= 70:
		return "Mid-Level - Solid fundamentals with a clear path to senior."
	case overall >= 60:
		return "Junior/Mid - Growing skills, benefits from mentorship."
	default:
		return "Junior - Entry-level with potential for growth."
	}
}

func detectPlatform(sourceURL string) string {
	u := strings.ToLower(sourceURL)
	switch {
	case strings.Contains(u, "behance.net"):
		return "behance"
	case strings.Contains(u, "dribbble.com"):
		return "dribbble"
	case strings.Contains(u, "linkedin.com"):
		return "linkedin"
	case strings.Contains(u, "notion.so"), strings.Contains(u, "notion.site"):
		return "notion"
	case strings.Contains(u, "framer.com"), strings.Contains(u, "webflow.io"), strings.Contains(u, "squarespace"):
		return "custom"
	default:
		return "generic"
	}
}

func detectSpecialization(text string) string {
	switch {
	case containsAny(text, "mobile", "ios", "android", " app"):
		return "mobile"
	case containsAny(text, "saas", "dashboard", "webapp", "web "):
		return "web"
	case containsAny(text, "brand", "identity", "logo"):
		return "branding"
	case containsAny(text, "ux research", "user research", "usability"):
		return "research"
	case containsAny(text, "3d", "motion", "animation", "video"):
		return "motion"
	default:
		return "general"
	}
}

func containsAny(text string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

// critiqueSeed rotates phrase selection per submission while staying a pure
// function of the signals. Two identical pages always read the same.
func critiqueSeed(s *extractor.Signals) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s.SourceURL))
	_, _ = h.Write([]byte(s.Title))
	_, _ = h.Write([]byte(s.Description))
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%d:%d", s.HeadingCount, s.ImageCount, s.WordCount)))
	return h.Sum32()
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
