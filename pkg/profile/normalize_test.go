package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// CLASSIFICATION
// ============================================================================

func TestClassifyEntityType(t *testing.T) {
	tests := []struct {
		entityType string
		want       Class
	}{
		{"Person", ClassIndividual},
		{"Character", ClassIndividual},
		{"Organization", ClassInstitution},
		{"Company", ClassInstitution},
		{"University", ClassInstitution},
	}

	for _, tt := range tests {
		t.Run(tt.entityType, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEntityType(tt.entityType))
		})
	}
}

// ============================================================================
// GENDER NORMALIZATION
// ============================================================================

func TestNormalizeGender(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Male", "male"},
		{"F", "female"},
		{"男", "male"},
		{"女性", "female"},
		{"nonbinary", "other"},
		{"", "other"},
		{"unrecognized", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeGender(tt.raw))
		})
	}
}

// ============================================================================
// NORMALIZE INVARIANTS
// ============================================================================

func TestNormalize_InstitutionOverride(t *testing.T) {
	p := &AgentProfile{Age: 99, Gender: "male"}
	Normalize(p, ClassInstitution)

	assert.Equal(t, 30, p.Age)
	assert.Equal(t, "other", p.Gender)
}

func TestNormalize_IndividualDefaultsFillGaps(t *testing.T) {
	p := &AgentProfile{}
	Normalize(p, ClassIndividual)

	assert.NotZero(t, p.Age)
	assert.Equal(t, "other", p.Gender)
	assert.Equal(t, "INFP", p.MBTI)
	assert.Equal(t, "Unknown", p.Country)
}

func TestNormalize_BioTruncation(t *testing.T) {
	long := make([]byte, maxBioLen+50)
	for i := range long {
		long[i] = 'a'
	}
	p := &AgentProfile{Bio: string(long)}
	Normalize(p, ClassIndividual)

	assert.Len(t, p.Bio, maxBioLen)
}

func TestRuleBasedDefault_SourceFieldsPreserved(t *testing.T) {
	p := RuleBasedDefault(7, "uuid-1", "Organization", "Acme Corp")

	assert.Equal(t, 7, p.UserID)
	assert.Equal(t, "uuid-1", p.SourceEntityUUID)
	assert.Equal(t, "Organization", p.SourceEntityType)
	assert.Equal(t, "Acme Corp", p.DisplayName)
	assert.Equal(t, 30, p.Age)
	assert.Equal(t, "other", p.Gender)
}
