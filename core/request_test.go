package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_ParsedVariables_Object(t *testing.T) {
	r := Request{Variables: map[string]interface{}{"search": "blue"}}
	vars, err := r.ParsedVariables()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"search": "blue"}, vars)
}

func TestRequest_ParsedVariables_JSONString(t *testing.T) {
	r := Request{Variables: `{"search": "blue", "pageSize": 5}`}
	vars, err := r.ParsedVariables()
	require.NoError(t, err)
	assert.Equal(t, "blue", vars["search"])
	assert.EqualValues(t, 5, vars["pageSize"])
}

func TestRequest_ParsedVariables_Absent(t *testing.T) {
	vars, err := (&Request{}).ParsedVariables()
	require.NoError(t, err)
	assert.Nil(t, vars)

	vars, err = (&Request{Variables: ""}).ParsedVariables()
	require.NoError(t, err)
	assert.Nil(t, vars)
}

func TestRequest_ParsedVariables_Invalid(t *testing.T) {
	_, err := (&Request{Variables: `{"broken"`}).ParsedVariables()
	require.Error(t, err)

	_, err = (&Request{Variables: 42}).ParsedVariables()
	require.Error(t, err)
}

func TestFastPath_KnownOperations(t *testing.T) {
	fp := NewFastPath()

	body, ok := fp.Lookup("IntrospectionQuery")
	require.True(t, ok)
	assert.Contains(t, string(body), "__schema")

	body, ok = fp.Lookup("StoreConfigQuery")
	require.True(t, ok)
	assert.Contains(t, string(body), "storeConfig")

	_, ok = fp.Lookup("cockpitCategoryByParentUIDPagination")
	assert.False(t, ok)

	_, ok = fp.Lookup("SomeOtherQuery")
	assert.False(t, ok)
}
