package reps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validFacilityRow() Row {
	return Row{
		ColRegistryCode:     "1100100001",
		ColSedeNumber:       "01",
		ColName:             "Sede Centro",
		ColDepartmentName:   "CundinamarcÃ¡",
		ColMunicipalityName: "Bogotá",
		ColAddress:          "Calle 10 # 5-23",
	}
}

func TestValidateRowFacility(t *testing.T) {
	res := ValidateRow(0, validFacilityRow(), FacilityRequiredFields)

	assert.True(t, res.Valid)
	assert.Empty(t, res.Missing)
	// cells come out normalized
	assert.Equal(t, "Cundinamarcá", res.Data[ColDepartmentName])
}

func TestValidateRowCollectsAllMissingFields(t *testing.T) {
	row := validFacilityRow()
	row[ColDepartmentName] = ""
	row[ColAddress] = "nan"
	delete(row, ColName)

	res := ValidateRow(3, row, FacilityRequiredFields)

	assert.False(t, res.Valid)
	assert.Equal(t, 3, res.Index)
	assert.ElementsMatch(t,
		[]string{ColName, ColDepartmentName, ColAddress}, res.Missing)
}

func TestValidateRowService(t *testing.T) {
	row := Row{
		ColRegistryCode: "1100100001",
		ColSedeNumber:   "01",
		ColServiceCode:  "325",
		ColServiceName:  "Laboratorio clínico",
	}
	res := ValidateRow(0, row, ServiceRequiredFields)
	assert.True(t, res.Valid)

	row[ColServiceCode] = " "
	res = ValidateRow(0, row, ServiceRequiredFields)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{ColServiceCode}, res.Missing)
}

func TestValidateRowSentinelCountsAsMissing(t *testing.T) {
	row := validFacilityRow()
	row[ColMunicipalityName] = "NULL"

	res := ValidateRow(0, row, FacilityRequiredFields)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{ColMunicipalityName}, res.Missing)
}
