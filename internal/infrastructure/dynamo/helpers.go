package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is the output of buildUpdateExpr, ready to be passed to UpdateItem.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression,
// optionally followed by a REMOVE clause for the given attribute names.
// Fields are processed in sorted order so the expression is deterministic.
// Removing is how single-use token attributes are cleared: dropping the
// attribute takes the item out of the sparse GSI keyed on it.
func buildUpdateExpr(updates map[string]interface{}, removes ...string) (*updateExpr, error) {
	if len(updates) == 0 && len(removes) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	ue := &updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sets []string
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		ue.Names[nameKey] = k
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Values[valueKey] = av
		sets = append(sets, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	var clauses []string
	if len(sets) > 0 {
		clauses = append(clauses, "SET "+strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		var rms []string
		for i, k := range removes {
			nameKey := fmt.Sprintf("#r%d", i)
			ue.Names[nameKey] = k
			rms = append(rms, nameKey)
		}
		clauses = append(clauses, "REMOVE "+strings.Join(rms, ", "))
	}
	ue.Expr = strings.Join(clauses, " ")
	return ue, nil
}
