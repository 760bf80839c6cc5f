// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package profile

import "strings"

// Class is the coarse entity classification used to pick a prompt
// template and rule-based defaults.
type Class string

const (
	ClassIndividual  Class = "individual"
	ClassInstitution Class = "institution"
)

// institutionLabels are the fixed label set that marks an entity as a
// group/institution rather than an individual.
var institutionLabels = map[string]bool{
	"Organization": true,
	"Institution":  true,
	"Company":      true,
	"Government":   true,
	"University":   true,
	"Media":        true,
}

// ClassifyEntityType maps a graph entity type/label to a Class. Anything
// outside the fixed institution label set is treated as a generic
// individual.
func ClassifyEntityType(entityType string) Class {
	if institutionLabels[entityType] {
		return ClassInstitution
	}
	return ClassIndividual
}

// genderSynonyms maps every accepted spelling, including common Chinese
// forms, to the three canonical values.
var genderSynonyms = map[string]string{
	"male": "male", "m": "male", "man": "male", "男": "male", "男性": "male",
	"female": "female", "f": "female", "woman": "female", "女": "female", "女性": "female",
	"other": "other", "nonbinary": "other", "non-binary": "other", "unspecified": "other",
}

func normalizeGender(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if g, ok := genderSynonyms[key]; ok {
		return g
	}
	if g, ok := genderSynonyms[raw]; ok { // Chinese forms aren't affected by ToLower
		return g
	}
	return "other"
}

// defaultsFor returns class-keyed fallback demographics used both by the
// rule-based generator and to fill gaps left by an LLM response.
func defaultsFor(class Class) (age int, gender, mbti, country string) {
	if class == ClassInstitution {
		return 30, "other", "", "Unknown"
	}
	return 28, "other", "INFP", "Unknown"
}

// Normalize enforces the required-field invariants on p in place,
// given the entity's classification.
func Normalize(p *AgentProfile, class Class) {
	defAge, defGender, defMBTI, defCountry := defaultsFor(class)

	if class == ClassInstitution {
		p.Age = 30
		p.Gender = "other"
	} else {
		if p.Gender == "" {
			p.Gender = defGender
		} else {
			p.Gender = normalizeGender(p.Gender)
		}
		if p.Age <= 0 {
			p.Age = defAge
		}
	}

	if p.MBTI == "" {
		p.MBTI = defMBTI
	}
	if p.Country == "" {
		p.Country = defCountry
	}
	if len(p.Bio) > maxBioLen {
		p.Bio = p.Bio[:maxBioLen]
	}
}

// RuleBasedDefault builds a fallback profile keyed only on entity type, used
// when every LLM attempt for an entity has failed.
func RuleBasedDefault(userID int, entityUUID, entityType, entityName string) AgentProfile {
	class := ClassifyEntityType(entityType)
	age, gender, mbti, country := defaultsFor(class)

	p := AgentProfile{
		UserID:           userID,
		UserName:         slug(entityName, userID),
		DisplayName:      entityName,
		Bio:              "A " + strings.ToLower(entityType) + " participant in this community.",
		Persona:          "An ordinary " + strings.ToLower(entityType) + " with typical interests and routines.",
		Age:              age,
		Gender:           gender,
		MBTI:             mbti,
		Country:          country,
		Profession:       entityType,
		Interests:        []string{"general discussion"},
		SourceEntityUUID: entityUUID,
		SourceEntityType: entityType,
	}
	Normalize(&p, class)
	return p
}

func slug(name string, id int) string {
	s := strings.ToLower(strings.Join(strings.Fields(name), "_"))
	if s == "" {
		s = "agent"
	}
	return s
}
