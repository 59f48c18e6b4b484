package domain

import (
	"math"
	"testing"
)

func TestLevelNameConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    LevelName
		expected string
	}{
		{"Severe", LevelSevere, "Severe"},
		{"Moderate", LevelModerate, "Moderate"},
		{"Mild", LevelMild, "Mild"},
		{"Normal", LevelNormal, "Normal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.String())
			}
		})
	}
}

func TestAnswerVectorValue(t *testing.T) {
	two := 2
	tooHigh := 9
	negative := -1
	answers := AnswerVector{&two, nil, &tooHigh, &negative}

	tests := []struct {
		name     string
		index    int
		expected int
	}{
		{"present answer", 0, 2},
		{"missing answer", 1, 0},
		{"above range", 2, 0},
		{"below range", 3, 0},
		{"past end of vector", 50, 0},
		{"negative index", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := answers.Value(tt.index); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestNewAnswerVector(t *testing.T) {
	values := []int{0, 1, 2, 3, 4}
	answers := NewAnswerVector(values)

	if len(answers) != len(values) {
		t.Fatalf("Expected %d answers, got %d", len(values), len(answers))
	}
	if answers.Answered() != len(values) {
		t.Errorf("Expected all %d answers present, got %d", len(values), answers.Answered())
	}

	values[0] = 4
	if answers.Value(0) != 0 {
		t.Errorf("AnswerVector must not alias the source slice")
	}
}

func TestValidAverage(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		valid bool
	}{
		{"lower bound", 0, true},
		{"midpoint", 2.5, true},
		{"upper bound", 4, true},
		{"negative", -0.1, false},
		{"above scale", 4.01, false},
		{"NaN", math.NaN(), false},
		{"positive infinity", math.Inf(1), false},
		{"negative infinity", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAverage(tt.value); got != tt.valid {
				t.Errorf("ValidAverage(%v) = %t, want %t", tt.value, got, tt.valid)
			}
		})
	}
}
