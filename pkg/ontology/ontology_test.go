package ontology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// ENTITY TYPE CAP & FALLBACKS
// ============================================================================

func TestNormalize_FallbacksAlwaysLast(t *testing.T) {
	o := &Ontology{
		EntityTypes: []EntityType{
			{Name: "Rumor"}, {Name: "Workplace"},
		},
	}
	Normalize(o)

	assert.Len(t, o.EntityTypes, 4)
	last := o.EntityTypes[len(o.EntityTypes)-2:]
	assert.Equal(t, fallbackPerson, last[0].Name)
	assert.Equal(t, fallbackOrgType, last[1].Name)
}

func TestNormalize_EntityTypeCapEvictsFromEnd(t *testing.T) {
	o := &Ontology{}
	for i := 0; i < 12; i++ {
		o.EntityTypes = append(o.EntityTypes, EntityType{Name: "Custom" + string(rune('A'+i))})
	}
	Normalize(o)

	assert.Len(t, o.EntityTypes, maxEntityTypes)
	last := o.EntityTypes[len(o.EntityTypes)-2:]
	assert.Equal(t, fallbackPerson, last[0].Name)
	assert.Equal(t, fallbackOrgType, last[1].Name)
	// 8 custom types survive ahead of the two fallbacks.
	assert.Equal(t, "CustomA", o.EntityTypes[0].Name)
	assert.Equal(t, "CustomH", o.EntityTypes[7].Name)
}

func TestNormalize_FallbacksAlreadyPresentNotDuplicated(t *testing.T) {
	o := &Ontology{
		EntityTypes: []EntityType{
			{Name: "Rumor"}, {Name: fallbackPerson}, {Name: fallbackOrgType},
		},
	}
	Normalize(o)

	assert.Len(t, o.EntityTypes, 3)
	names := []string{o.EntityTypes[0].Name, o.EntityTypes[1].Name, o.EntityTypes[2].Name}
	assert.Equal(t, []string{"Rumor", fallbackPerson, fallbackOrgType}, names)
}

// ============================================================================
// EDGE TYPE CAP
// ============================================================================

func TestNormalize_EdgeTypeCap(t *testing.T) {
	o := &Ontology{}
	for i := 0; i < 15; i++ {
		o.EdgeTypes = append(o.EdgeTypes, EdgeType{Name: "Edge"})
	}
	Normalize(o)

	assert.LessOrEqual(t, len(o.EdgeTypes), maxEdgeTypes)
}

// ============================================================================
// DESCRIPTION TRUNCATION
// ============================================================================

func TestNormalize_DescriptionTruncation(t *testing.T) {
	long := strings.Repeat("x", 250)
	o := &Ontology{
		EntityTypes: []EntityType{
			{Name: "Rumor", Description: long, Attributes: []AttributeDescriptor{{Name: "a", Description: long}}},
		},
		EdgeTypes: []EdgeType{
			{Name: "Spreads", Description: long, Attributes: []AttributeDescriptor{{Name: "b", Description: long}}},
		},
	}
	Normalize(o)

	for _, et := range o.EntityTypes {
		assert.LessOrEqual(t, len(et.Description), maxDescLen)
		for _, attr := range et.Attributes {
			assert.LessOrEqual(t, len(attr.Description), maxDescLen)
		}
	}
	for _, edt := range o.EdgeTypes {
		assert.LessOrEqual(t, len(edt.Description), maxDescLen)
		for _, attr := range edt.Attributes {
			assert.LessOrEqual(t, len(attr.Description), maxDescLen)
		}
	}
}

// ============================================================================
// RESERVED ATTRIBUTE REMAPPING
// ============================================================================

func TestNormalize_ReservedAttributeRemap(t *testing.T) {
	o := &Ontology{
		EntityTypes: []EntityType{
			{Name: "Rumor", Attributes: []AttributeDescriptor{{Name: "name"}, {Name: "topic"}}},
		},
		EdgeTypes: []EdgeType{
			{Name: "Spreads", Attributes: []AttributeDescriptor{{Name: "created_at"}}},
		},
	}
	Normalize(o)

	assert.Equal(t, "entity_name", o.EntityTypes[0].Attributes[0].Name)
	assert.Equal(t, "topic", o.EntityTypes[0].Attributes[1].Name)
	assert.Equal(t, "entity_created_at", o.EdgeTypes[0].Attributes[0].Name)

	assert.Equal(t, "entity_name", o.AttributeRemap["Rumor.name"])
	assert.Equal(t, "entity_created_at", o.AttributeRemap["Spreads.created_at"])

	for _, et := range o.EntityTypes {
		for _, attr := range et.Attributes {
			assert.False(t, reservedAttributeNames[attr.Name])
		}
	}
}

func TestNormalize_NoCollisionLeavesRemapEmpty(t *testing.T) {
	o := &Ontology{
		EntityTypes: []EntityType{
			{Name: "Rumor", Attributes: []AttributeDescriptor{{Name: "topic"}}},
		},
	}
	Normalize(o)

	assert.Empty(t, o.AttributeRemap)
}
