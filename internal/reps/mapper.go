package reps

import (
	"strings"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
)

var sedeTypeLookup = map[string]model.SedeType{
	"principal":             model.SedeTypePrincipal,
	"sede principal":        model.SedeTypePrincipal,
	"satelite":              model.SedeTypeSatellite,
	"satélite":              model.SedeTypeSatellite,
	"satellite":             model.SedeTypeSatellite,
	"sede satelite":         model.SedeTypeSatellite,
	"movil":                 model.SedeTypeMobile,
	"móvil":                 model.SedeTypeMobile,
	"unidad movil":          model.SedeTypeMobile,
	"unidad móvil":          model.SedeTypeMobile,
	"domiciliaria":          model.SedeTypeDomiciliary,
	"domiciliario":          model.SedeTypeDomiciliary,
	"atencion domiciliaria": model.SedeTypeDomiciliary,
	"telemedicina":          model.SedeTypeTelemedicine,
	"telemedicine":          model.SedeTypeTelemedicine,
}

// MapSedeType resolves the free-text subtype through the closed lookup
// table. Unmapped input defaults to satellite.
func MapSedeType(s string) model.SedeType {
	v := strings.ToLower(NormalizeText(s))
	if t, ok := sedeTypeLookup[v]; ok {
		return t
	}
	return model.SedeTypeSatellite
}

// Mapper converts validated rows into canonical entities.
type Mapper struct {
	// DefaultComplexity is applied to unrecognized complexity descriptors.
	DefaultComplexity model.Complexity
	// ActingUser attributes created/updated entities.
	ActingUser string
}

// FacilityKey extracts the natural key from a facility or service row.
func FacilityKey(row Row) model.NaturalKey {
	return model.NaturalKey{
		RegistryCode: row[ColRegistryCode],
		SedeNumber:   row[ColSedeNumber],
	}
}

// MapFacility converts one valid, normalized facility row into an entity
// ready for upsert. When the organization has no facility yet, the caller
// passes forceMain=true and the new facility becomes the main one
// regardless of its mapped subtype.
func (m *Mapper) MapFacility(row Row, orgID uuid.UUID, forceMain bool) *model.FacilityLocation {
	f := &model.FacilityLocation{
		OrganizationID:     orgID,
		RegistryCode:       row[ColRegistryCode],
		SedeNumber:         row[ColSedeNumber],
		Name:               row[ColName],
		SedeType:           MapSedeType(row[ColSedeType]),
		DepartmentCode:     row[ColDepartmentCode],
		DepartmentName:     row[ColDepartmentName],
		MunicipalityCode:   row[ColMunicipalityCode],
		MunicipalityName:   row[ColMunicipalityName],
		Address:            row[ColAddress],
		Phone:              row[ColPhone],
		Email:              row[ColEmail],
		HabilitationStatus: string(CanonBool(row[ColHabilitated])),
	}
	f.CreatedBy = m.ActingUser
	f.UpdatedBy = m.ActingUser

	// The main flag never comes from the subtype: an export can carry
	// several "principal" rows and the catalog allows only one main
	// facility per organization.
	f.IsMainFacility = forceMain
	return f
}

// MapService converts one valid, normalized service row into an entity.
// The parent facility must already exist; resolution is the caller's job.
func (m *Mapper) MapService(row Row, orgID, facilityID uuid.UUID) *model.EnabledService {
	s := &model.EnabledService{
		FacilityID:       facilityID,
		OrganizationID:   orgID,
		ServiceCode:      row[ColServiceCode],
		ServiceName:      row[ColServiceName],
		ServiceGroup:     row[ColServiceGroup],
		Complexity:       CanonComplexity(row[ColComplexity], m.DefaultComplexity),
		Ambulatory:       CanonBool(row[ColAmbulatory]),
		Hospital:         CanonBool(row[ColHospital]),
		MobileUnit:       CanonBool(row[ColMobileUnit]),
		Domiciliary:      CanonBool(row[ColDomiciliary]),
		Telemedicine:     CanonBool(row[ColTelemedicine]),
		HabilitationDate: ParseDate(row[ColHabilitationDate]),
		Capacity:         ParseInt(row[ColCapacity], 0),
	}
	s.CreatedBy = m.ActingUser
	s.UpdatedBy = m.ActingUser
	return s
}
