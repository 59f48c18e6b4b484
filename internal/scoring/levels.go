package scoring

import "github.com/TJerry3s/SCI-90test/internal/domain"

// Risk classification thresholds.
const (
	SevereTotalScore   = 250
	ModerateTotalScore = 200
	MildTotalScore     = 160

	SevereHighFactors   = 3
	ModerateHighFactors = 2
	MildHighFactors     = 1

	// HighFactorAverage is the average at or above which a factor counts as high.
	HighFactorAverage = 3.0
	// ModerateFactorAverage is the average at or above which a factor needs attention.
	ModerateFactorAverage = 2.0

	// PositiveItemThreshold: answers strictly above it count as positive items.
	PositiveItemThreshold = 1
)

type levelInfo struct {
	color                 string
	description           string
	advice                string
	recommendProfessional bool
}

var riskLevels = map[domain.LevelName]levelInfo{
	domain.LevelSevere: {
		color:       "#E53935",
		description: "Your answers show marked distress across several areas. These symptoms are likely affecting daily life, work and relationships.",
		advice: "We strongly recommend contacting a psychiatrist or clinical psychologist soon. " +
			"If you have thoughts of harming yourself, reach out to a crisis line or emergency services right away.",
		recommendProfessional: true,
	},
	domain.LevelModerate: {
		color:       "#FB8C00",
		description: "Your answers show clear distress in one or more areas that may be interfering with how you feel and function.",
		advice: "Consider booking an appointment with a counsellor or psychologist. " +
			"Talking to people you trust and keeping a regular routine can help in the meantime.",
		recommendProfessional: true,
	},
	domain.LevelMild: {
		color:       "#FDD835",
		description: "Your answers show some distress. This is common during stressful periods and often eases with time and self-care.",
		advice: "Pay attention to sleep, exercise and rest, and give yourself time to recover. " +
			"If the symptoms last for more than a few weeks or get worse, consider speaking to a professional.",
	},
	domain.LevelNormal: {
		color:       "#43A047",
		description: "Your answers are within the typical range. No notable distress was reported.",
		advice:      "Keep up the habits that support your wellbeing, such as regular sleep, activity and social contact.",
	},
}

// classifyLevel applies the decision table top to bottom; the first match wins.
func classifyLevel(totalScore, highFactorCount int) domain.LevelName {
	switch {
	case totalScore >= SevereTotalScore || highFactorCount >= SevereHighFactors:
		return domain.LevelSevere
	case totalScore >= ModerateTotalScore || highFactorCount >= ModerateHighFactors:
		return domain.LevelModerate
	case totalScore >= MildTotalScore || highFactorCount >= MildHighFactors:
		return domain.LevelMild
	default:
		return domain.LevelNormal
	}
}

// ClassifyRisk derives the overall risk level. factors must be in canonical
// order: among equally high factors the first one becomes the main issue.
func ClassifyRisk(totalScore int, factors []domain.FactorResult) domain.RiskLevel {
	highCount := 0
	var mainIssue *string
	best := 0.0

	for i := range factors {
		f := factors[i]
		if f.Average < HighFactorAverage {
			continue
		}
		highCount++
		if mainIssue == nil || f.Average > best {
			name := f.Name
			mainIssue = &name
			best = f.Average
		}
	}

	level := classifyLevel(totalScore, highCount)
	info := riskLevels[level]

	return domain.RiskLevel{
		Level:                 level,
		Color:                 info.color,
		Description:           info.description,
		Advice:                info.advice,
		MainIssue:             mainIssue,
		HighFactorCount:       highCount,
		RecommendProfessional: info.recommendProfessional,
	}
}
