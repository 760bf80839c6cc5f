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

// Package ontology defines the typed ontology (entity/edge types) and
// the validation/normalization pass applied to whatever an external
// OntologyService collaborator returns. Generation itself (inferring the
// ontology from document text and a natural-language requirement) is an
// external collaborator; this package only consumes its output.
package ontology

import "context"

const (
	maxEntityTypes  = 10
	maxEdgeTypes    = 10
	maxDescLen      = 100
	fallbackPerson  = "Person"
	fallbackOrgType = "Organization"
	reservedPrefix  = "entity_"
)

// reservedAttributeNames are identifiers the graph backend reserves for its
// own node/edge bookkeeping; an ontology attribute that collides with one is
// rewritten with reservedPrefix.
var reservedAttributeNames = map[string]bool{
	"uuid":       true,
	"name":       true,
	"group_id":   true,
	"created_at": true,
	"labels":     true,
	"summary":    true,
}

// AttributeDescriptor describes one typed attribute of an entity or edge
// type.
type AttributeDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// EntityType is one node label the ontology defines.
type EntityType struct {
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Attributes  []AttributeDescriptor `json:"attributes" yaml:"attributes"`
}

// TypePair constrains an edge type to a specific (source, target) entity
// type pairing.
type TypePair struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// EdgeType is one relationship label the ontology defines.
type EdgeType struct {
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Attributes  []AttributeDescriptor `json:"attributes" yaml:"attributes"`
	TypePairs   []TypePair            `json:"type_pairs" yaml:"type_pairs"`
}

// Ontology is the full typed schema a graph is built against.
type Ontology struct {
	EntityTypes []EntityType `json:"entity_types" yaml:"entity_types"`
	EdgeTypes   []EdgeType   `json:"edge_types" yaml:"edge_types"`

	// AttributeRemap records every attribute rename the normalizer applied,
	// keyed "EntityOrEdgeTypeName.originalAttrName" -> rewritten name. No
	// code outside this package reads it; ProfileSynthesizer and
	// ConfigSynthesizer do not reverse the mapping.
	AttributeRemap map[string]string `json:"attribute_remap,omitempty" yaml:"attribute_remap,omitempty"`
}

// Generator is the external OntologyService collaborator: given document
// text and a natural-language requirement, it returns a candidate ontology.
// The core never infers the ontology itself; it only validates and
// normalizes whatever Generate returns.
type Generator interface {
	Generate(ctx context.Context, documentTexts []string, requirement string, hints map[string]any) (*Ontology, error)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Normalize enforces the ontology invariants:
//   - every description is capped at 100 characters
//   - at most 10 entity types survive, the last two always Person/Organization
//   - at most 10 edge types survive
//   - any attribute name colliding with a reserved identifier is rewritten
//     with the entity_ prefix, and the rename recorded in AttributeRemap
//
// Normalize mutates o in place and also returns it for chaining.
func Normalize(o *Ontology) *Ontology {
	if o.AttributeRemap == nil {
		o.AttributeRemap = make(map[string]string)
	}

	capDescriptions(o)
	remapReservedAttributes(o)
	capEdgeTypes(o)
	ensureFallbackEntityTypes(o)

	return o
}

func capDescriptions(o *Ontology) {
	for i := range o.EntityTypes {
		o.EntityTypes[i].Description = truncate(o.EntityTypes[i].Description, maxDescLen)
		for j := range o.EntityTypes[i].Attributes {
			o.EntityTypes[i].Attributes[j].Description = truncate(o.EntityTypes[i].Attributes[j].Description, maxDescLen)
		}
	}
	for i := range o.EdgeTypes {
		o.EdgeTypes[i].Description = truncate(o.EdgeTypes[i].Description, maxDescLen)
		for j := range o.EdgeTypes[i].Attributes {
			o.EdgeTypes[i].Attributes[j].Description = truncate(o.EdgeTypes[i].Attributes[j].Description, maxDescLen)
		}
	}
}

func remapReservedAttributes(o *Ontology) {
	for i := range o.EntityTypes {
		et := &o.EntityTypes[i]
		for j := range et.Attributes {
			name := et.Attributes[j].Name
			if reservedAttributeNames[name] {
				safe := reservedPrefix + name
				et.Attributes[j].Name = safe
				o.AttributeRemap[et.Name+"."+name] = safe
			}
		}
	}
	for i := range o.EdgeTypes {
		edt := &o.EdgeTypes[i]
		for j := range edt.Attributes {
			name := edt.Attributes[j].Name
			if reservedAttributeNames[name] {
				safe := reservedPrefix + name
				edt.Attributes[j].Name = safe
				o.AttributeRemap[edt.Name+"."+name] = safe
			}
		}
	}
}

func capEdgeTypes(o *Ontology) {
	if len(o.EdgeTypes) > maxEdgeTypes {
		o.EdgeTypes = o.EdgeTypes[:maxEdgeTypes]
	}
}

// ensureFallbackEntityTypes guarantees the ontology ends with exactly
// Person, Organization, evicting from the end of the non-fallback prefix as
// needed to respect the ≤10 cap.
func ensureFallbackEntityTypes(o *Ontology) {
	var rest []EntityType
	for _, et := range o.EntityTypes {
		if et.Name != fallbackPerson && et.Name != fallbackOrgType {
			rest = append(rest, et)
		}
	}

	maxRest := maxEntityTypes - 2
	if len(rest) > maxRest {
		rest = rest[:maxRest]
	}

	o.EntityTypes = append(rest, EntityType{
		Name:        fallbackPerson,
		Description: "An individual human participant.",
	}, EntityType{
		Name:        fallbackOrgType,
		Description: "A company, institution, or other collective body.",
	})
}
