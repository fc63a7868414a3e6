package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aduanas/internal"
	"aduanas/internal/catalog"
)

// shipped loads the dictionary and rule files under configs/.
func shipped(t *testing.T, variant, dictFile, rulesFile string) *Pipeline {
	t.Helper()
	dir := filepath.Join("..", "..", "configs")
	dict, err := catalog.LoadDictionary(filepath.Join(dir, dictFile))
	require.NoError(t, err)
	rules, err := catalog.LoadRules(filepath.Join(dir, rulesFile))
	require.NoError(t, err)

	v, err := VariantByName(variant)
	require.NoError(t, err)
	for _, name := range v.RuleOrder {
		_, ok, err := rules.Apply(name, "CANTIDAD 10,00 UND; 3KITS  PRODUCTO")
		assert.True(t, ok, name)
		assert.NoError(t, err, name)
	}
	return NewPipeline(v, rules, dict, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

func TestShippedKitsConfig(t *testing.T) {
	p := shipped(t, VariantKits, "diccionario_kits.json", "expresiones_regulares_kits.json")
	records := p.ProcessLine(internal.RawDeclaration{
		AcceptanceNumber: "482025000300",
		Description:      "producto: kit de arrastre marca: akt motos cantidad 10 und",
		DeclaredQuantity: "10.00",
	})
	require.Len(t, records, 1)
	assert.Equal(t, "KIT DE ARRASTRE", records[0].Product)
	assert.Equal(t, "AKT", records[0].Brand)
	assert.Equal(t, 10, records[0].Quantity)
	assert.True(t, records[0].IsChain)
}

func TestShippedGeneralConfig(t *testing.T) {
	p := shipped(t, VariantGeneral, "diccionario.json", "expresiones_regulares.json")
	records := p.ProcessLine(internal.RawDeclaration{
		AcceptanceNumber: "482025000301",
		Description:      "BATERIA MARCA: WILLARD REFERENCIA: NS 40 CANTIDAD: 2,00 U",
		DeclaredQuantity: "2",
	})
	require.Len(t, records, 1)
	assert.Equal(t, internal.SentinelNoEspecificado, records[0].Product)
	assert.Equal(t, "WILLARD", records[0].Brand)
	assert.Equal(t, "NS40", records[0].Reference)
	assert.Equal(t, 2, records[0].Quantity)
}

func TestShippedConfigsProcessLines(t *testing.T) {
	cases := []struct {
		variant   string
		dictFile  string
		rulesFile string
	}{
		{variant: VariantKits, dictFile: "diccionario_kits.json", rulesFile: "expresiones_regulares_kits.json"},
		{variant: VariantGeneral, dictFile: "diccionario.json", rulesFile: "expresiones_regulares.json"},
	}
	lines := []string{
		"12345|PRODUCTO: CASCO MARCA: MOTUL CANTIDAD: 5 UNIDADES|5|UND",
		"12345|onlytwo|fields",
	}

	for _, tc := range cases {
		t.Run(tc.variant, func(t *testing.T) {
			p := shipped(t, tc.variant, tc.dictFile, tc.rulesFile)
			res, err := NewProcessor(p, 2, nil).ProcessLines(context.Background(), lines)
			require.NoError(t, err)

			assert.Equal(t, 1, res.Summary.Processed)
			assert.Equal(t, 1, res.Summary.Errored)
			require.Len(t, res.Records, 1)
			r := res.Records[0]
			assert.Equal(t, "12345", r.AcceptanceNumber)
			assert.Equal(t, "CASCO", r.Product)
			assert.Equal(t, "MOTUL", r.Brand)
			assert.Equal(t, 5, r.Quantity)
		})
	}
}
