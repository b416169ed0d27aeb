package dynamo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// numKey builds a DynamoDB primary key map with a single numeric attribute.
func numKey(name string, value int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: numValue(value),
	}
}

func numValue(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are emitted in sorted order so placeholders are stable across calls.
func buildUpdateExpr(updates map[string]interface{}) (updateExpr, error) {
	if len(updates) == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := updateExpr{
		Expr:   "SET ",
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		if i > 0 {
			ue.Expr += ", "
		}
		ue.Expr += fmt.Sprintf("%s = %s", nameKey, valueKey)
	}
	return ue, nil
}

// keyAttr is the JSON form of a single key attribute inside a page cursor.
type keyAttr struct {
	S string `json:"s,omitempty"`
	N string `json:"n,omitempty"`
}

// encodeCursor turns a LastEvaluatedKey into an opaque URL-safe cursor.
// Returns "" when there is no further page.
func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	out := make(map[string]keyAttr, len(key))
	for name, av := range key {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			out[name] = keyAttr{S: v.Value}
		case *types.AttributeValueMemberN:
			out[name] = keyAttr{N: v.Value}
		default:
			return "", fmt.Errorf("unsupported key attribute %s", name)
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	var in map[string]keyAttr
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, fmt.Errorf("empty cursor")
	}
	key := make(map[string]types.AttributeValue, len(in))
	for name, a := range in {
		switch {
		case a.N != "":
			key[name] = &types.AttributeValueMemberN{Value: a.N}
		default:
			key[name] = &types.AttributeValueMemberS{Value: a.S}
		}
	}
	return key, nil
}

// queryAll follows LastEvaluatedKey until the query is exhausted.
func queryAll(ctx context.Context, client *dynamodb.Client, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
	}
	return items, nil
}

// countAll runs input with Select=COUNT across every page.
func countAll(ctx context.Context, client *dynamodb.Client, input *dynamodb.QueryInput) (int, error) {
	input.Select = types.SelectCount
	total := 0
	p := dynamodb.NewQueryPaginator(client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
	}
	return total, nil
}
