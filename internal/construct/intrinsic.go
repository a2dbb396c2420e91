package construct

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/awslabs/goformation/v7/cloudformation"
)

// Pseudo parameters resolved by CloudFormation at deploy time.
const (
	PseudoAccountID = "AWS::AccountId"
	PseudoPartition = "AWS::Partition"
	PseudoRegion    = "AWS::Region"
	PseudoStackName = "AWS::StackName"
	PseudoURLSuffix = "AWS::URLSuffix"
)

const pseudoPrefix = "AWS::"

// Intrinsic functions travel inside typed resource properties as encoded
// strings, the form goformation uses. Template decodes them back into the
// single-key object form, e.g. {"Ref": "MyVpc"}.

// Ref references a resource, parameter or pseudo parameter by logical ID.
func Ref(logicalID string) string {
	return cloudformation.Ref(logicalID)
}

// GetAtt reads an attribute of a resource.
func GetAtt(logicalID, attribute string) string {
	return cloudformation.GetAtt(logicalID, attribute)
}

// GetAZs lists the availability zones of region. An empty region means the
// region the stack is deployed to.
func GetAZs(region string) string {
	return cloudformation.GetAZs(region)
}

// Base64 encodes s at deploy time.
func Base64(s string) string {
	return cloudformation.Base64(s)
}

// Sub substitutes ${Name} and ${Name.Attribute} variables in s. s must not
// contain double quotes.
func Sub(s string) string {
	return cloudformation.Sub(s)
}

// Select picks the index-th element of list. The index stays a JSON number
// and list may itself be an intrinsic such as GetAZs.
func Select(index int, list string) string {
	return encodeIntrinsic("Fn::Select", []any{index, Decode(list)})
}

// Join concatenates parts with sep. Parts may be intrinsics.
func Join(sep string, parts ...string) string {
	values := make([]any, len(parts))
	for i, p := range parts {
		values[i] = Decode(p)
	}
	return encodeIntrinsic("Fn::Join", []any{sep, values})
}

func encodeIntrinsic(name string, args any) string {
	// Arguments are strings, ints and decoded intrinsics, which always
	// marshal.
	data, _ := json.Marshal(map[string]any{name: args})
	return base64.StdEncoding.EncodeToString(data)
}

// Decode returns the object form of an encoded intrinsic, or s unchanged
// when it is a plain string.
func Decode(s string) any {
	if fn, ok := decodeIntrinsic(s); ok {
		return decodeValues(fn)
	}
	return s
}

func decodeIntrinsic(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "ey") {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	var fn map[string]any
	if err := json.Unmarshal(raw, &fn); err != nil || len(fn) != 1 {
		return nil, false
	}
	for name := range fn {
		if name != "Ref" && name != "Condition" && !strings.HasPrefix(name, "Fn::") {
			return nil, false
		}
	}
	return fn, true
}

// decodeValues replaces every encoded intrinsic inside v, which must be a
// generic JSON value.
func decodeValues(v any) any {
	switch x := v.(type) {
	case string:
		return Decode(x)
	case map[string]any:
		for k, child := range x {
			x[k] = decodeValues(child)
		}
		return x
	case []any:
		for i, child := range x {
			x[i] = decodeValues(child)
		}
		return x
	}
	return v
}
