package solve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/pool"
)

func numberProp(v float64) model.PropertyValue {
	return model.LiteralValue(v, model.TypeNumber)
}

func TestCollectWalksStaticRelationshipsOnly(t *testing.T) {
	carId, w1, w2 := model.Id("car"), model.Id("w1"), model.Id("w2")
	car := model.Instance{
		Id:         carId,
		ClassId:    "car-class",
		Properties: map[string]model.PropertyValue{},
		Relationships: map[string]model.RelationshipSelection{
			"wheels": {Kind: model.RelSimpleIds, Ids: []model.Id{w1, w2}},
		},
	}
	wheel1 := model.Instance{Id: w1, ClassId: "wheel-class", Properties: map[string]model.PropertyValue{"basePrice": numberProp(10)}, Relationships: map[string]model.RelationshipSelection{}}
	wheel2 := model.Instance{Id: w2, ClassId: "wheel-class", Properties: map[string]model.PropertyValue{"basePrice": numberProp(15)}, Relationships: map[string]model.RelationshipSelection{}}

	u := pool.NewUniverse([]model.Instance{car, wheel1, wheel2}, nil)

	result, err := Collect(u, carId)
	require.NoError(t, err)
	require.Len(t, result.Configuration, 3)
	require.Equal(t, []model.Id{carId, w1, w2}, result.Order)
}

func TestCollectMissingTargetErrors(t *testing.T) {
	u := pool.NewUniverse(nil, nil)
	_, err := Collect(u, "ghost")
	require.Error(t, err)
}
