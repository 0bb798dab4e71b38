package utils

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Now is the wall clock in UTC; every persisted timestamp goes through it.
func Now() time.Time {
	return time.Now().UTC()
}

func GenerateID() string {
	return uuid.NewString()
}

func DatatypesJSONFromStrings(ss []string) datatypes.JSON {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return datatypes.JSON(b)
}

func DatatypesJSONFromMap(m map[string]interface{}) datatypes.JSON {
	if m == nil {
		m = map[string]interface{}{}
	}
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}

// DatatypesJSONFrom marshals any value; nil becomes JSON null.
func DatatypesJSONFrom(v interface{}) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

func StringsFromJSON(j datatypes.JSON) []string {
	var arr []string
	_ = json.Unmarshal([]byte(j), &arr)
	return arr
}
