package memory

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-reconciliation/pkg/storage"
	"github.com/shopspring/decimal"
)

// apply returns a copy of current with the update applied. current is not modified.
func apply(current item, u *storage.Update) (item, error) {
	next := clone(&types.AttributeValueMemberM{Value: current}).(*types.AttributeValueMemberM).Value

	sets := u.Sets()
	for _, path := range storage.SortedKeys(sets) {
		av, err := attributevalue.Marshal(sets[path])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", path, err)
		}
		if err := setPath(next, storage.SplitPath(path), av); err != nil {
			return nil, err
		}
	}

	appends := u.Appends()
	for _, path := range storage.SortedKeys(appends) {
		segments := storage.SplitPath(path)
		list := []types.AttributeValue{}
		if existing, ok := getPath(next, segments).(*types.AttributeValueMemberL); ok {
			list = append(list, existing.Value...)
		}
		for _, v := range appends[path] {
			av, err := attributevalue.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal %s: %w", path, err)
			}
			list = append(list, av)
		}
		if err := setPath(next, segments, &types.AttributeValueMemberL{Value: list}); err != nil {
			return nil, err
		}
	}

	adds := u.Adds()
	adds[storage.AttrVersion]++
	for _, path := range storage.SortedKeys(adds) {
		segments := storage.SplitPath(path)
		total, err := number(getPath(next, segments))
		if err != nil {
			return nil, fmt.Errorf("failed to add to %s: %w", path, err)
		}
		total = total.Add(decimal.NewFromInt(adds[path]))
		if err := setPath(next, segments, &types.AttributeValueMemberN{Value: total.String()}); err != nil {
			return nil, err
		}
	}

	for _, path := range u.Removes() {
		removePath(next, storage.SplitPath(path))
	}

	return next, nil
}

func removePath(it item, segments []string) {
	parent, ok := getPath(it, segments[:len(segments)-1]).(*types.AttributeValueMemberM)
	if !ok {
		return
	}
	delete(parent.Value, segments[len(segments)-1])
}

func getPath(it item, segments []string) types.AttributeValue {
	var current types.AttributeValue = &types.AttributeValueMemberM{Value: it}
	for _, name := range segments {
		m, ok := current.(*types.AttributeValueMemberM)
		if !ok {
			return nil
		}
		current = m.Value[name]
	}
	return current
}

// setPath writes av at the document path, creating intermediate maps when needed.
func setPath(it item, segments []string, av types.AttributeValue) error {
	m := it
	for _, name := range segments[:len(segments)-1] {
		child, ok := m[name].(*types.AttributeValueMemberM)
		if !ok {
			if existing := m[name]; existing != nil {
				if _, isNull := existing.(*types.AttributeValueMemberNULL); !isNull {
					return fmt.Errorf("document path %s is not a map", name)
				}
			}
			child = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
			m[name] = child
		}
		m = child.Value
	}
	m[segments[len(segments)-1]] = av
	return nil
}

// number reads a numeric attribute. A missing attribute counts as zero, as
// with the DynamoDB ADD action.
func number(av types.AttributeValue) (decimal.Decimal, error) {
	switch v := av.(type) {
	case nil:
		return decimal.Zero, nil
	case *types.AttributeValueMemberN:
		return decimal.NewFromString(v.Value)
	default:
		return decimal.Zero, fmt.Errorf("attribute is %T, not a number", av)
	}
}

func clone(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		out := make(map[string]types.AttributeValue, len(v.Value))
		for k, child := range v.Value {
			out[k] = clone(child)
		}
		return &types.AttributeValueMemberM{Value: out}
	case *types.AttributeValueMemberL:
		out := make([]types.AttributeValue, len(v.Value))
		for i, child := range v.Value {
			out[i] = clone(child)
		}
		return &types.AttributeValueMemberL{Value: out}
	default:
		return av
	}
}
