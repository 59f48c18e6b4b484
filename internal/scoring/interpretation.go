package scoring

import (
	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/questionnaire"
)

type factorText struct {
	description      string
	highScoreMeaning string
	suggestions      []string
}

var factorTexts = map[string]factorText{
	questionnaire.Somatization: {
		description:      "Physical discomfort such as headaches, chest pain, stomach upset, muscle aches and breathing difficulties.",
		highScoreMeaning: "Stress or worry may be showing up as bodily symptoms. Medical causes should be ruled out, but tension often plays a part.",
		suggestions: []string{
			"Have a general check-up to rule out physical causes",
			"Practise progressive muscle relaxation or deep breathing daily",
			"Keep a regular sleep schedule and moderate exercise",
			"Notice whether symptoms get worse during stressful periods",
		},
	},
	questionnaire.ObsessiveCompulsive: {
		description:      "Unwanted thoughts, repeated checking, indecision and difficulty concentrating.",
		highScoreMeaning: "You may be caught in repetitive thoughts or actions that are hard to stop and take up time and energy.",
		suggestions: []string{
			"Write intrusive thoughts down instead of arguing with them",
			"Gradually delay checking or repeating actions",
			"Break tasks into small steps with clear end points",
			"Ask a therapist about cognitive behavioural therapy",
		},
	},
	questionnaire.InterpersonalSensitivity: {
		description:      "Feelings of inferiority, self-consciousness and discomfort when dealing with others.",
		highScoreMeaning: "You may feel easily hurt, judged or out of place around other people, which can make contact tiring.",
		suggestions: []string{
			"Challenge assumptions about what others think of you",
			"Start with low-pressure social situations and build up",
			"List your own strengths and achievements",
		},
	},
	questionnaire.Depression: {
		description:      "Low mood, loss of interest, low energy, hopelessness, sleep and appetite changes, and guilt.",
		highScoreMeaning: "You may be experiencing a persistent low mood that drains energy and motivation. Thoughts of death need urgent attention.",
		suggestions: []string{
			"Plan small, achievable activities you used to enjoy",
			"Keep regular meal and sleep times",
			"Stay in touch with friends or family, even briefly",
			"Seek professional help promptly if you think about self-harm",
			"Spend time outdoors and move your body every day",
		},
	},
	questionnaire.Anxiety: {
		description:      "Nervousness, tension, restlessness, panic attacks and a sense that something bad will happen.",
		highScoreMeaning: "Your body and mind may be in a near-constant state of alarm, which is exhausting and can trigger panic.",
		suggestions: []string{
			"Practise slow breathing when you notice tension rising",
			"Limit caffeine and alcohol",
			"Schedule a fixed daily worry time",
			"Try mindfulness or grounding exercises",
		},
	},
	questionnaire.Hostility: {
		description:      "Irritability, anger outbursts, urges to break things and frequent arguments.",
		highScoreMeaning: "Anger may be building up and coming out in ways that strain relationships or feel out of control.",
		suggestions: []string{
			"Take a time-out before responding when angry",
			"Use physical exercise to release tension",
			"Express needs calmly using 'I' statements",
		},
	},
	questionnaire.PhobicAnxiety: {
		description:      "Persistent fear of specific places, situations or crowds, leading to avoidance.",
		highScoreMeaning: "Fear may be leading you to avoid places or activities, which can shrink daily life over time.",
		suggestions: []string{
			"Approach feared situations gradually, one small step at a time",
			"Bring a trusted person along at first",
			"Ask a therapist about exposure-based treatment",
		},
	},
	questionnaire.ParanoidIdeation: {
		description:      "Suspiciousness, feeling watched or taken advantage of, and mistrust of others.",
		highScoreMeaning: "You may be finding it hard to trust others and may read hostile intent into neutral situations.",
		suggestions: []string{
			"Check suspicions against concrete evidence",
			"Talk situations through with someone you trust",
			"Reduce stress and get enough sleep, which both affect suspicion",
		},
	},
	questionnaire.Psychoticism: {
		description:      "Feelings of isolation, unusual thoughts or experiences, and a sense of detachment from others.",
		highScoreMeaning: "You may be feeling disconnected from people or having experiences that are hard to explain. A professional assessment is worthwhile.",
		suggestions: []string{
			"Discuss unusual experiences with a mental health professional",
			"Keep a stable daily routine",
			"Avoid alcohol and recreational drugs",
			"Stay connected with supportive people",
		},
	},
}

var genericText = factorText{
	description:      "A symptom dimension of the questionnaire.",
	highScoreMeaning: "Higher averages indicate more frequent or more intense symptoms in this area.",
	suggestions: []string{
		"Keep regular sleep, meals and activity",
		"Talk with someone you trust about how you feel",
		"Consult a professional if symptoms persist",
	},
}

// FactorLevelFor maps a factor average to its qualitative level and display tone.
func FactorLevelFor(average float64) (domain.FactorLevel, string) {
	switch {
	case average >= HighFactorAverage:
		return domain.FactorElevated, "warning"
	case average >= ModerateFactorAverage:
		return domain.FactorModerate, "attention"
	default:
		return domain.FactorNormal, "normal"
	}
}

// Interpret returns the interpretation for a factor using the given scale for
// display names. Unknown factor names fall back to generic text.
func Interpret(scale *questionnaire.Scale, factorName string, average float64) domain.Interpretation {
	text, ok := factorTexts[factorName]
	if !ok {
		text = genericText
	}

	displayName := factorName
	if scale != nil {
		if f, found := scale.Factor(factorName); found {
			displayName = f.DisplayName
		}
	}

	level, tone := FactorLevelFor(average)
	suggestions := make([]string, len(text.suggestions))
	copy(suggestions, text.suggestions)

	return domain.Interpretation{
		Factor:           factorName,
		DisplayName:      displayName,
		Description:      text.description,
		HighScoreMeaning: text.highScoreMeaning,
		Suggestions:      suggestions,
		Average:          average,
		Level:            level,
		Tone:             tone,
	}
}
