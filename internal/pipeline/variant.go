package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"aduanas/internal"
)

const (
	VariantKits    = "kits"
	VariantGeneral = "general"
)

// Replacement is one entry of a symbol table. A plain entry swaps Old for New
// everywhere. A prefix entry inserts New in front of every Old that is not
// already preceded by it, so running the table twice changes nothing.
type Replacement struct {
	Old    string
	New    string
	Prefix bool
}

func Replace(old, with string) Replacement { return Replacement{Old: old, New: with} }

func Prefix(keyword, separator string) Replacement {
	return Replacement{Old: keyword, New: separator, Prefix: true}
}

// TagCategory maps a dictionary phrase category to the canonical token its
// phrases are rewritten to.
type TagCategory struct {
	Key   string
	Token string
}

// Variant bundles everything that differs between the product families.
type Variant struct {
	Name string

	// UppercaseFirst uppercases and collapses the description before the
	// symbol table runs; otherwise uppercasing happens after the rules.
	UppercaseFirst bool
	Symbols        []Replacement
	RuleOrder      []string

	Tags        []TagCategory
	Corrections []string

	Product   *FieldRule
	Brand     *FieldRule
	Reference *FieldRule
	Model     *FieldRule

	Quantities []quantityPattern

	// ReferenceCorrections names the dictionary category consulted for an
	// exact match on each extracted reference. Empty disables the step.
	ReferenceCorrections string
}

func VariantByName(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case VariantKits:
		return kitsVariant, nil
	case VariantGeneral, "llantas", "baterias":
		return generalVariant, nil
	default:
		return Variant{}, eris.Errorf("pipeline: unknown variant %q", name)
	}
}

// Sentinels are the placeholder values written when a field has no
// candidates.
func (v Variant) Sentinels() Sentinels {
	return Sentinels{
		Product:   v.Product.Sentinel,
		Brand:     v.Brand.Sentinel,
		Reference: v.Reference.Sentinel,
		Model:     v.Model.Sentinel,
	}
}

var kitsSymbols = []Replacement{
	Replace("|", ":"),
	Replace("_", ":"),
	Replace("=", ":"),
	Replace("(", " "),
	Replace(")", " "),
	Replace("/", " "),
}

var generalSymbols = []Replacement{
	Replace("|", ":"),
	Replace("_", ":"),
	Replace("=", ":"),
	Replace("(", " "),
	Replace(")", " "),
	Prefix("PAIS", ", "),
	Replace("P. ORIGEN:", ", PAIS:"),
	Replace("CANTIDAD DECLARADA: ", ", DECLARADA :"),
	Replace("CANTIDAD FACTURADA:", ", CANTIDAD: "),
	Replace("N O TIENE", "NO TIENE"),
	Replace("NO TI ENE", "NO TIENE"),
	Replace("NO TIEN E", "NO TIENE"),
	Replace("NO TIE NE", "NO TIENE"),
	Prefix(" WC", ","),
	Replace("REFERENCIA: ARANCELARIA", ", ARANCEL"),
	Replace("REFERENCIA: ARANCELARI A", ", ARANCEL"),
	Replace("PARTE NUMERO ", ""),
	Replace("PA RTE NUMERO ", ""),
	Replace("UNIDADES:", "UNIDADES."),
	Replace("MARCA: IMPORTADOR:", ""),
	Prefix("MODELO", ", "),
	Prefix("ITEM", ", "),
	Replace(", MARCA: SEGUN FACTURA", ", MARCA: "),
	Prefix("SERIAL:", ", "),
	Replace("YMARCA:", "Y, MARCA: "),
	Replace("U 6224", "U6224"),
	Prefix("U6224", "Q"),
	Replace("SEGUN ORDEN DE COMPRA", ""),
	Replace(". USO", ", USO"),
	Prefix(" USO", ","),
	Prefix(" BATERIA", ","),
	Replace(";", ","),
	Replace("/", ","),
}

var kitsRuleOrder = []string{
	"normalizar_cantidad_unidad_decimales",
	"normalizar_cantidad_unidad_enteros",
	"separar_cantidad_producto",
	"normalizar_espacios_antes_producto",
	"normalizar_cantidad_punto_coma",
	"normalizar_cantidad_coma",
	"normalizar_punto_coma_mercancia",
	"limpiar_espacios_multiples",
	"patron_palabra_cantidad",
	"normalizar_cantidad_espacio",
}

var generalRuleOrder = []string{
	"normalizar_cantidad_unidad_decimales",
	"normalizar_cantidad_unidad_enteros",
	"separar_cantidad_producto",
	"normalizar_espacios_antes_producto",
	"normalizar_cantidad_punto_coma",
	"normalizar_cantidad_coma",
	"eliminar_decimales",
	"normalizar_punto_coma_mercancia",
	"limpiar_espacios_multiples",
	"patron_palabra_cantidad",
	"normalizar_cantidad_espacio",
}

var kitsTags = []TagCategory{
	{Key: "segun_variants", Token: "SEGUN"},
	{Key: "producto_variants", Token: ", PRODUCTO:"},
	{Key: "marca_variants", Token: ", MARCA:"},
	{Key: "referencia_variants", Token: ", REFERENCIA:"},
	{Key: "modelo_variants", Token: ", MODELO:"},
	{Key: "cantidad_variants", Token: ", CANTIDAD:"},
	{Key: "cadena_variants", Token: ", CADENA:"},
	{Key: "kit_variants", Token: ", KIT:"},
	{Key: "paso_variants", Token: ", PASO:"},
}

var generalTags = []TagCategory{
	{Key: "segun_variants", Token: " SEGUN "},
	{Key: "factura_variants", Token: " FACTURA "},
	{Key: "referencia_variants", Token: ", REFERENCIA: "},
	{Key: "marca_variants", Token: ", MARCA: "},
	{Key: "cantidad_variants", Token: ", CANTIDAD: "},
	{Key: "codigo_variants", Token: ", CODIGO: "},
	{Key: "producto_variants", Token: ", PRODUCTO: "},
}

var kitsBlacklist = []string{internal.SentinelNoTiene, internal.SentinelNoEspecificado, internal.SentinelNoEspecificada}

var generalStops = []string{"MARCA", "CANTIDAD", "REFERENCIA", "PRODUCTO", "MODELO", "CODIGO", "SERIAL"}

var kitsVariant = Variant{
	Name:           VariantKits,
	UppercaseFirst: true,
	Symbols:        kitsSymbols,
	RuleOrder:      kitsRuleOrder,
	Tags:           kitsTags,
	Corrections:    []string{"marcas_conocidas", "partes_variants", "referencia_modelo_variants", "referencia_segun_variant"},

	Product: newFieldRule("PRODUCTO", []string{"MARCA", "CANTIDAD", "REFERENCIA", "MODELO", "CADENA", "KIT"},
		2, kitsBlacklist, internal.SentinelNoEspecificado),
	Brand: newFieldRule("MARCA", []string{"MODELO", "REFERENCIA", "CANTIDAD", "PRODUCTO", "CADENA", "KIT"},
		1, kitsBlacklist, internal.SentinelNoEspecificada),
	Reference: newFieldRule("REFERENCIA", []string{"MARCA", "CANTIDAD", "PRODUCTO", "MODELO", "CADENA", "KIT"},
		1, kitsBlacklist, internal.SentinelNoEspecificada),
	Model: newFieldRule("MODELO", []string{"MARCA", "CANTIDAD", "PRODUCTO", "REFERENCIA", "CADENA", "KIT"},
		1, kitsBlacklist, internal.SentinelNoEspecificado),

	Quantities: kitsQuantityPatterns,
}

var generalVariant = Variant{
	Name:        VariantGeneral,
	Symbols:     generalSymbols,
	RuleOrder:   generalRuleOrder,
	Tags:        generalTags,
	Corrections: []string{"marcas_conocidas", "referencia_modelo_variants"},

	Product: newFieldRule("PRODUCTO", generalStops, 2,
		[]string{internal.SentinelNoTiene, internal.SentinelNoEspecificado}, internal.SentinelNoEspecificado),
	Brand: newFieldRule("MARCA", generalStops, 1,
		[]string{internal.SentinelNoTiene}, internal.SentinelNoTiene),
	Reference: newFieldRule("REFERENCIA", generalStops, 1,
		[]string{internal.SentinelNoTiene, "SEGUN FACTURA"}, internal.SentinelNoTiene),
	Model: newFieldRule("MODELO", generalStops, 1,
		[]string{internal.SentinelNoTiene, internal.SentinelNoEspecificado}, internal.SentinelNoEspecificado),

	Quantities:           generalQuantityPatterns,
	ReferenceCorrections: "referencia_modelo_variants",
}
