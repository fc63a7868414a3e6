package internal

import "time"

const (
	UnitUnidades = "UNIDADES"

	SentinelNoEspecificado = "NO ESPECIFICADO"
	SentinelNoEspecificada = "NO ESPECIFICADA"
	SentinelNoTiene        = "NO TIENE"
	SentinelNotApplicable  = "N/A"
)

type RawDeclaration struct {
	LineNo           int
	AcceptanceNumber string
	Description      string
	DeclaredQuantity string
}

type RegexRule struct {
	Name        string `json:"-"`
	Pattern     string `json:"patron"`
	Replacement string `json:"reemplazo"`
}

type Correction struct {
	From string
	To   string
}

type ExtractedRecord struct {
	AcceptanceNumber string
	Product          string
	Brand            string
	Reference        string
	Model            string
	Quantity         int
	Unit             string
	IsChain          bool
	StepMeasure      string
	OriginalQuantity string
	ProcessedAt      time.Time
}

type RecordKey struct {
	AcceptanceNumber string
	Product          string
	Brand            string
	Reference        string
	Model            string
	Quantity         int
}

func (r ExtractedRecord) Key() RecordKey {
	return RecordKey{
		AcceptanceNumber: r.AcceptanceNumber,
		Product:          r.Product,
		Brand:            r.Brand,
		Reference:        r.Reference,
		Model:            r.Model,
		Quantity:         r.Quantity,
	}
}

type RunSummary struct {
	RunID      string
	Variant    string
	InputPath  string
	Lines      int
	Blank      int
	Processed  int
	Errored    int
	Records    int
	Duplicates int
	StartedAt  time.Time
	FinishedAt time.Time
}

type Statistics struct {
	Declarations             int      `json:"total_registros"`
	Records                  int      `json:"total_productos"`
	TotalUnits               int      `json:"total_unidades"`
	ChainRecords             int      `json:"productos_con_cadenas"`
	DeclarationsWithChains   int      `json:"registros_con_cadenas"`
	UniqueBrands             int      `json:"marcas_unicas"`
	Brands                   []string `json:"lista_marcas"`
	AvgRecordsPerDeclaration float64  `json:"promedio_productos_por_registro"`
	AvgUnitsPerRecord        float64  `json:"promedio_unidades_por_producto"`
	MaxRecordsDeclaration    string   `json:"registro_con_mas_productos"`
	MaxRecordsPerDeclaration int      `json:"max_productos_por_registro"`
}

type DeclarationSummary struct {
	AcceptanceNumber string
	Records          int
	TotalQuantity    int
	Brands           []string
	HasChain         bool
	Steps            string
	Products         []string
}

type SourceRow struct {
	ID        int
	Path      string
	Hash      string
	Status    string
	RunID     string
	UpdatedAt string
}

type RunRow struct {
	ID         int
	RunID      string
	Variant    string
	InputPath  string
	Lines      int
	Processed  int
	Errored    int
	Records    int
	Duplicates int
	CreatedAt  string
}
