package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// timeLayout keeps every stored timestamp the same width so that string
// comparisons on created_on order the same way the instants do.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeTime(t time.Time) (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: formatTime(t)}, nil
}

// marshalMap marshals a record with fixed width timestamps.
func marshalMap(in any) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMapWithOptions(in, func(o *attributevalue.EncoderOptions) {
		o.EncodeTime = encodeTime
	})
}

// buildUpdateInput translates a partial update into an UpdateItem request.
// The update never creates a record: it is conditional on the transaction
// existing, and on its version when the update expects one. Every update bumps
// the version.
func buildUpdateInput(table, txID string, u *storage.Update) (*dynamodb.UpdateItemInput, error) {
	update := expression.Add(expression.Name(storage.AttrVersion), expression.Value(1))

	sets := u.Sets()
	for _, path := range storage.SortedKeys(sets) {
		value := sets[path]
		if t, ok := value.(time.Time); ok {
			value = formatTime(t)
		}
		update = update.Set(expression.Name(path), expression.Value(value))
	}

	appends := u.Appends()
	for _, path := range storage.SortedKeys(appends) {
		name := expression.Name(path)
		update = update.Set(name, expression.ListAppend(
			expression.IfNotExists(name, expression.Value([]any{})),
			expression.Value(appends[path]),
		))
	}

	adds := u.Adds()
	for _, path := range storage.SortedKeys(adds) {
		update = update.Add(expression.Name(path), expression.Value(adds[path]))
	}

	for _, path := range u.Removes() {
		update = update.Remove(expression.Name(path))
	}

	condition := expression.AttributeExists(expression.Name(transactionKey))
	if expected, ok := u.ExpectedVersion(); ok {
		condition = condition.And(expression.Name(storage.AttrVersion).Equal(expression.Value(expected)))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	return &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			transactionKey: &types.AttributeValueMemberS{Value: txID},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}
