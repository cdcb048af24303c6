package scoring

import (
	"fmt"
	"strings"

	"portlens/internal/extractor"
)

// The critique bank. Phrases are grouped by category and score bracket
// (>=80 high, >=70 mid, below low); selection rotates through a bracket's
// pool using the submission seed so distinct portfolios read differently
// while identical signals always produce identical text.

var visualHigh = []string{
	"The layout demonstrates exceptional visual polish that immediately communicates professionalism, with craft quality on par with senior-level work at design-forward companies.",
	"Typographic hierarchy is handled with confidence, guiding attention through the content with a consistent rhythm between headings and body text.",
	"A restrained palette and deliberate use of negative space keep the focus on the work itself rather than the chrome around it.",
	"Image curation is strong: each visual earns its place and the density of artwork signals a substantial body of work.",
}

var visualMid = []string{
	"The layout is clean and functional, presenting work in a professional manner suitable for most hiring contexts, with room for more distinctive styling.",
	"Fundamental principles like alignment, proximity and balance are applied consistently, suggesting a designer ready for production work.",
	"The structure reads clearly, though the typographic scale could use more contrast to sharpen the hierarchy.",
}

var visualLow = []string{
	"The presentation shows emerging understanding of layout and composition; focused practice on grid discipline and type scale would lift the execution significantly.",
	"Visual hierarchy needs strengthening, particularly in how key pieces are surfaced against supporting content.",
	"Adding more imagery of the actual work would give reviewers something concrete to judge the craft by.",
}

var uxHigh = []string{
	"Case studies demonstrate genuine user-centric thinking, articulating the problem space before jumping to solutions.",
	"The process vocabulary throughout the writing (research, testing, iteration) indicates a practitioner who works beyond the surface.",
	"Evidence of structured flows and documented decisions shows systems thinking rather than screen-by-screen output.",
}

var uxMid = []string{
	"Problem definitions are solid and give enough context to understand the design challenges; deeper research artefacts would make them more compelling.",
	"User-centered thinking is visible, though validation methods are not fully documented.",
	"Task flows are logical with some gaps around edge cases and error states.",
}

var uxLow = []string{
	"The work would benefit from documenting the research and discovery process - the 'why' rather than just the 'what'.",
	"Solutions are presented without clearly articulating the problem space they answer.",
	"Introducing even lightweight process documentation would materially change how this work is assessed.",
}

var commHigh = []string{
	"Storytelling is compelling, making complex projects accessible and leading naturally to the designer's impact.",
	"The writing quantifies outcomes where it can, which is exactly what separates senior narratives from galleries of screens.",
	"Substantial written content gives reviewers a clear read on how this designer thinks and communicates.",
}

var commMid = []string{
	"The narrative communicates design intent clearly, though success metrics remain largely qualitative.",
	"Structure follows a logical flow; a stronger hook at the top of each project would raise engagement.",
	"The presentation is professional with an opportunity for more personality and pacing.",
}

var commLow = []string{
	"Projects need a clearer problem-solution-outcome structure so reviewers can follow the reasoning.",
	"There is little written context around the work; even short captions on goals and constraints would help.",
	"Outcomes are not quantified, which makes the impact of the work hard to assess.",
}

var platformRecommendations = map[string][]string{
	"behance": {
		"Behance optimization: add more project modules and stronger hero images tuned to the gallery format.",
		"Repurpose top Behance projects as long-form articles to improve discoverability.",
	},
	"dribbble": {
		"Dribbble strategy: post process shots and case-study breakdowns, not just final frames.",
		"Strengthen shot compositions so pieces register in a fast-scrolling feed without losing depth.",
	},
	"linkedin": {
		"LinkedIn polish: add a featured section with direct links to full case studies.",
		"Write short posts about your design process to build visible authority.",
	},
	"notion": {
		"Consider migrating from Notion to a custom domain for a more deliberate presence.",
		"Replace default template styling with custom graphics so the portfolio itself demonstrates craft.",
	},
	"custom": {
		"Ensure the custom site loads quickly on mobile; performance is part of the first impression.",
		"Add meta descriptions and alt text - discoverability is part of portfolio reach.",
	},
	"generic": {
		"Establish profiles on the major portfolio platforms to widen visibility.",
	},
}

var specializationRecommendations = map[string][]string{
	"mobile": {
		"Annotate mobile work with gesture and thumb-zone decisions to show platform depth.",
		"Include interactive prototypes to demonstrate the interaction layer.",
	},
	"web": {
		"Show responsive variants to demonstrate adaptive thinking across breakpoints.",
		"Mention developer collaboration and handoff artefacts for production credibility.",
	},
	"branding": {
		"Showcase the full identity system in applied contexts, not just the mark.",
		"Consider adding motion guidelines to extend the identity work.",
	},
	"research": {
		"Quantify how research insights changed final design decisions.",
		"Publish a methodology overview so stakeholders see the rigor behind the findings.",
	},
	"motion": {
		"Cut a short highlight reel of the strongest motion work.",
		"Break down the animation principles behind key moments.",
	},
	"general": {
		"State a clear value proposition in the first sentence of the about section.",
	},
}

type critiqueContext struct {
	signals        *extractor.Signals
	platform       string
	specialization string
	seed           uint32
}

// pick selects n phrases from pool starting at a seed-derived offset.
func (c critiqueContext) pick(pool []string, n int) []string {
	if len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	start := int(c.seed) % len(pool)
	for i := 0; i < n; i++ {
		out = append(out, pool[(start+i)%len(pool)])
	}
	return out
}

func bracket(score int, high, mid, low []string) []string {
	switch {
	case score >= 80:
		return high
	case score >= 70:
		return mid
	default:
		return low
	}
}

func (c critiqueContext) strengths(visual, ux, communication int) []string {
	out := c.pick(bracket(visual, visualHigh, visualMid, visualLow), 2)
	out = append(out, c.pick(bracket(ux, uxHigh, uxMid, uxLow), 1)...)
	if communication >= 80 {
		out = append(out, c.pick(commHigh, 1)...)
	}

	// Splice the submission's own vocabulary so the critique reads as
	// grounded in this portfolio rather than generic.
	if kws := c.signals.Keywords; len(kws) > 0 {
		out = append(out, fmt.Sprintf(
			"The stated focus on '%s' comes through clearly and gives the portfolio a legible point of view.",
			kws[0]))
	}
	return out
}

func (c critiqueContext) weaknesses(visual, ux, communication int) []string {
	out := []string{}
	if visual < 75 {
		out = append(out, c.pick(visualLow, 1)...)
	}
	if ux < 75 {
		out = append(out, c.pick(uxLow, 1)...)
	}
	if communication < 75 {
		out = append(out, c.pick(commLow, 1)...)
	}
	if len(out) == 0 {
		out = append(out,
			"While the portfolio is strong overall, adding more quantitative outcomes would further strengthen credibility.")
	}
	if kws := c.signals.Keywords; len(kws) > 1 {
		out = append(out, fmt.Sprintf(
			"Themes like '%s' are mentioned but could be developed into fuller case-study narratives.",
			kws[1]))
	}
	return out
}

func (c critiqueContext) recommendations(text string) []string {
	out := []string{}
	if strings.Contains(text, "case stud") {
		out = append(out, "Lead case-study titles with results rather than deliverables.")
	} else {
		out = append(out, "Transform project showcases into narrative-driven case studies.")
	}
	out = append(out, platformRecommendations[c.platform]...)
	out = append(out, specializationRecommendations[c.specialization]...)
	out = append(out, "Add testimonials from colleagues, managers or clients for social proof.")
	if len(out) > 6 {
		out = out[:6]
	}
	return out
}
