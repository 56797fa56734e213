package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
)

var errNegativeMoney = errors.New("money settings must not be negative")

func decimalHook() mapstructure.DecodeHookFunc {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	toDecimal := func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("parse decimal %q: %w", v, err)
			}
			return d, nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		}
		return data, nil
	}

	return mapstructure.ComposeDecodeHookFunc(
		toDecimal,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
