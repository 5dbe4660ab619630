package reps

// Column names of the fixed REPS export shape, post header normalization.
const (
	ColRegistryCode     = "codigo_habilitacion"
	ColSedeNumber       = "numero_sede"
	ColName             = "nombre"
	ColSedeType         = "tipo_sede"
	ColDepartmentCode   = "depa_codigo"
	ColDepartmentName   = "depa_nombre"
	ColMunicipalityCode = "muni_codigo"
	ColMunicipalityName = "muni_nombre"
	ColAddress          = "direccion"
	ColPhone            = "telefono"
	ColEmail            = "email"
	ColHabilitated      = "habilitado"

	ColServiceCode      = "serv_codigo"
	ColServiceName      = "serv_nombre"
	ColServiceGroup     = "grse_nombre"
	ColComplexity       = "complejidad"
	ColAmbulatory       = "ambulatorio"
	ColHospital         = "hospitalario"
	ColMobileUnit       = "unidad_movil"
	ColDomiciliary      = "domiciliario"
	ColTelemedicine     = "telemedicina"
	ColHabilitationDate = "fecha_habilitacion"
	ColCapacity         = "capacidad"
)

// FacilityRequiredFields must be present on every facility row.
var FacilityRequiredFields = []string{
	ColRegistryCode,
	ColSedeNumber,
	ColName,
	ColDepartmentName,
	ColMunicipalityName,
	ColAddress,
}

// ServiceRequiredFields must be present on every service row; the parent
// facility natural key comes first.
var ServiceRequiredFields = []string{
	ColRegistryCode,
	ColSedeNumber,
	ColServiceCode,
	ColServiceName,
}

// RowResult is the per-row validation outcome. Validation never aborts a
// batch: an invalid row is reported with every missing field so the caller
// can surface one complete diagnostic per row.
type RowResult struct {
	Index   int      `json:"row_index"`
	Valid   bool     `json:"is_valid"`
	Data    Row      `json:"normalized_data"`
	Missing []string `json:"errors,omitempty"`
}

// ValidateRow normalizes every cell of the row and checks the required
// field list for the entity kind.
func ValidateRow(index int, row Row, required []string) RowResult {
	normalized := make(Row, len(row))
	for k, v := range row {
		normalized[k] = NormalizeText(v)
	}

	var missing []string
	for _, field := range required {
		if normalized[field] == "" {
			missing = append(missing, field)
		}
	}

	return RowResult{
		Index:   index,
		Valid:   len(missing) == 0,
		Data:    normalized,
		Missing: missing,
	}
}
