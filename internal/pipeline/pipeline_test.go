package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aduanas/internal"
)

func TestTagTextKits(t *testing.T) {
	p := newTestPipeline(t, VariantKits, kitsDictionaryJSON, nil)
	got := p.TagText("producto: kit de arrastre marca: akt motos referencia: 428h-120l cantidad: 10 unidades")
	assert.Equal(t, ", PRODUCTO: KIT DE ARRASTRE , MARCA: AKT , REFERENCIA: 428H-120L , CANTIDAD: 10 UNIDADES", got)
}

func TestProcessLineKits(t *testing.T) {
	p := newTestPipeline(t, VariantKits, kitsDictionaryJSON, nil)
	decl := internal.RawDeclaration{
		LineNo:           1,
		AcceptanceNumber: "482025000123",
		Description:      "producto: kit de arrastre marca: akt motos referencia: 428h-120l cantidad: 10 unidades",
		DeclaredQuantity: "10.00",
	}

	records := p.ProcessLine(decl)
	require.Len(t, records, 1)
	assert.Equal(t, internal.ExtractedRecord{
		AcceptanceNumber: "482025000123",
		Product:          "KIT DE ARRASTRE",
		Brand:            "AKT",
		Reference:        "428H-120L",
		Model:            internal.SentinelNoEspecificado,
		Quantity:         10,
		Unit:             internal.UnitUnidades,
		IsChain:          true,
		StepMeasure:      "428H-120L, 428H",
		OriginalQuantity: "10.00",
		ProcessedAt:      fixedNow,
	}, records[0])
}

func TestProcessLineKitsMultipleProducts(t *testing.T) {
	p := newTestPipeline(t, VariantKits, kitsDictionaryJSON, nil)
	records := p.ProcessLine(internal.RawDeclaration{
		AcceptanceNumber: "A1",
		Description:      "PRODUCTO: PIÑON MARCA: AKT PRODUCTO: CORONA MARCA: AKT CANTIDAD: 5 UNIDADES CANTIDAD: 3 UNIDADES",
		DeclaredQuantity: "8",
	})
	require.Len(t, records, 2)
	assert.Equal(t, "PIÑON", records[0].Product)
	assert.Equal(t, 3, records[0].Quantity)
	assert.Equal(t, "CORONA", records[1].Product)
	assert.Equal(t, 5, records[1].Quantity)
	for _, r := range records {
		assert.Equal(t, "AKT", r.Brand)
		assert.Equal(t, internal.SentinelNoEspecificada, r.Reference)
		assert.Equal(t, internal.SentinelNoEspecificado, r.Model)
		assert.False(t, r.IsChain)
		assert.Equal(t, internal.SentinelNotApplicable, r.StepMeasure)
	}
}

func TestProcessLineFallsBackToDeclaredQuantity(t *testing.T) {
	p := newTestPipeline(t, VariantKits, kitsDictionaryJSON, nil)
	records := p.ProcessLine(internal.RawDeclaration{
		AcceptanceNumber: "A2",
		Description:      "producto: cadena 428h marca: akt",
		DeclaredQuantity: "12.00",
	})
	require.Len(t, records, 1)
	assert.Equal(t, "CADENA 428H", records[0].Product)
	assert.Equal(t, "AKT", records[0].Brand)
	assert.Equal(t, 12, records[0].Quantity)
	assert.True(t, records[0].IsChain)
	assert.Equal(t, "428H, 428H", records[0].StepMeasure)
}

func TestProcessLineEmptyDescription(t *testing.T) {
	p := newTestPipeline(t, VariantKits, kitsDictionaryJSON, nil)
	records := p.ProcessLine(internal.RawDeclaration{AcceptanceNumber: "A3", DeclaredQuantity: "x"})
	require.Len(t, records, 1)
	assert.Equal(t, internal.SentinelNoEspecificado, records[0].Product)
	assert.Equal(t, internal.SentinelNoEspecificada, records[0].Brand)
	assert.Equal(t, 0, records[0].Quantity)
}

func TestProcessLineGeneral(t *testing.T) {
	p := newTestPipeline(t, VariantGeneral, generalDictionaryJSON, nil)
	records := p.ProcessLine(internal.RawDeclaration{
		AcceptanceNumber: "B1",
		Description:      "LLANTA MARCA: MICHELIN REFERENCIA: 120 - 70 R17 CANTIDAD: 4 U PAIS DE ORIGEN: FRANCIA",
		DeclaredQuantity: "4",
	})
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, internal.SentinelNoEspecificado, r.Product)
	assert.Equal(t, "MICHELIN", r.Brand)
	assert.Equal(t, "120-70 R17", r.Reference)
	assert.Equal(t, internal.SentinelNoEspecificado, r.Model)
	assert.Equal(t, 4, r.Quantity)
	assert.False(t, r.IsChain)
}

func TestCorrectReference(t *testing.T) {
	p := newTestPipeline(t, VariantGeneral, generalDictionaryJSON, nil)
	assert.Equal(t, "RX100", p.correctReference("rx 100"))
	assert.Equal(t, "ABC-12-3", p.correctReference("ABC - 12  -3"))
}

func TestAlignRepeatsLastCandidate(t *testing.T) {
	decl := internal.RawDeclaration{AcceptanceNumber: "C1", DeclaredQuantity: "7"}
	ex := Extraction{
		Products:   []string{"A", "B", "C"},
		Brands:     []string{"X"},
		Quantities: []int{0},
	}
	records := Align(decl, ex, kitsVariant.Sentinels(), fixedNow)
	require.Len(t, records, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, records[i].Product)
		assert.Equal(t, "X", records[i].Brand)
		assert.Equal(t, internal.SentinelNoEspecificada, records[i].Reference)
		assert.Equal(t, 7, records[i].Quantity)
	}
}

func TestAlignCountsQuantities(t *testing.T) {
	decl := internal.RawDeclaration{AcceptanceNumber: "C2"}
	records := Align(decl, Extraction{Products: []string{"A"}, Quantities: []int{2, 5}}, kitsVariant.Sentinels(), fixedNow)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Quantity)
	assert.Equal(t, 5, records[1].Quantity)
	assert.Equal(t, "A", records[1].Product)
}

func TestDedupeRecords(t *testing.T) {
	a := internal.ExtractedRecord{AcceptanceNumber: "1", Product: "A", Quantity: 1, StepMeasure: "first"}
	b := internal.ExtractedRecord{AcceptanceNumber: "1", Product: "A", Quantity: 1, StepMeasure: "second"}
	c := internal.ExtractedRecord{AcceptanceNumber: "1", Product: "A", Quantity: 2}

	out, dropped := DedupeRecords([]internal.ExtractedRecord{a, b, c})
	assert.Equal(t, 1, dropped)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].StepMeasure)
	assert.Equal(t, 2, out[1].Quantity)
}

func TestVariantByName(t *testing.T) {
	v, err := VariantByName(" Kits ")
	require.NoError(t, err)
	assert.Equal(t, VariantKits, v.Name)

	v, err = VariantByName("baterias")
	require.NoError(t, err)
	assert.Equal(t, VariantGeneral, v.Name)
	assert.Equal(t, internal.SentinelNoTiene, v.Sentinels().Brand)

	_, err = VariantByName("motos")
	require.Error(t, err)
}

func TestApplyDictionarySkipsEmptyEntries(t *testing.T) {
	dict := mustDictionary(t, `{"marca_variants": ["", "MARCA:"], "marcas_conocidas": {"AKT": "", "": "X"}}`)
	got := ApplyDictionary("MARCA: AKT", dict, kitsVariant)
	assert.Equal(t, ", MARCA: AKT", got)
}
