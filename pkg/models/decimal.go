package models

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Decimal wraps decimal.Decimal so fractional minor-unit amounts survive a
// round trip through DynamoDB as a number attribute.
type Decimal struct {
	decimal.Decimal
}

// NewDecimal wraps d.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{Decimal: d}
}

// DecimalFromInt wraps an integer amount.
func DecimalFromInt(v int64) Decimal {
	return Decimal{Decimal: decimal.NewFromInt(v)}
}

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
func (d Decimal) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: d.String()}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (d *Decimal) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		parsed, err := decimal.NewFromString(v.Value)
		if err != nil {
			return fmt.Errorf("failed to parse decimal %q: %w", v.Value, err)
		}
		d.Decimal = parsed
	case *types.AttributeValueMemberS:
		parsed, err := decimal.NewFromString(v.Value)
		if err != nil {
			return fmt.Errorf("failed to parse decimal %q: %w", v.Value, err)
		}
		d.Decimal = parsed
	case *types.AttributeValueMemberNULL:
		d.Decimal = decimal.Zero
	default:
		return fmt.Errorf("unsupported attribute value type %T for decimal", av)
	}
	return nil
}
