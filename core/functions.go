package core

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"math"
	"sort"
	"strings"
)

// FuncKind distinguishes the three function shapes of spec.md §4.3.
type FuncKind int

const (
	KindRow       FuncKind = iota // (row, partialResult) -> scalar
	KindConst                     // () -> scalar
	KindAggregate                 // (group) -> scalar
)

// RowEvaluator receives already-resolved arguments: field references
// have been substituted with their row/partial-result value by the
// caller (query.go/engine.go), so the evaluator itself never touches
// a Row. This mirrors the teacher's FunctionEvaluator closure shape.
type RowEvaluator func(args []interface{}) (interface{}, error)

// AggEvaluator receives the full group and the raw (unresolved)
// argument list, since an aggregate's first argument names the field
// to fold over rather than a value to use directly.
type AggEvaluator func(group []Row, args []interface{}) (interface{}, error)

// FunctionDef is one entry in the FunctionRegistry: a named factory
// with typed arity, grounded on the teacher's FunctionDefinition.
type FunctionDef struct {
	Name    string
	Kind    FuncKind
	MinArgs int
	MaxArgs int // -1 means unlimited
	Row     RowEvaluator
	Agg     AggEvaluator
}

// FunctionRegistry is a registry of named function factories; the
// parser and engine consult it instead of hard-coding a dispatch
// switch (spec.md §9 "Function dispatch").
type FunctionRegistry struct {
	defs map[string]*FunctionDef
}

// NewFunctionRegistry returns a registry pre-loaded with the full
// built-in library (spec.md §4.3: string, math, hash, aggregate,
// utility).
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{defs: make(map[string]*FunctionDef)}
	r.registerAggregates()
	r.registerString()
	r.registerMath()
	r.registerHash()
	r.registerUtility()
	return r
}

func (r *FunctionRegistry) register(def FunctionDef) {
	r.defs[def.Name] = &def
}

// Lookup returns the definition for name (case-insensitive).
func (r *FunctionRegistry) Lookup(name string) (*FunctionDef, bool) {
	d, ok := r.defs[strings.ToUpper(name)]
	return d, ok
}

// Describe is an alias for Lookup exposed for introspection.
func (r *FunctionRegistry) Describe(name string) (*FunctionDef, bool) {
	return r.Lookup(name)
}

// Names returns every registered function name, sorted.
func (r *FunctionRegistry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for n := range r.defs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CheckArity validates n against a definition's declared arity.
func (d *FunctionDef) CheckArity(n int) error {
	if n < d.MinArgs || (d.MaxArgs >= 0 && n > d.MaxArgs) {
		return parseErr("%s expects between %d and %d arguments, got %d", d.Name, d.MinArgs, maxArgsDisplay(d.MaxArgs), n)
	}
	return nil
}

func maxArgsDisplay(max int) int {
	if max < 0 {
		return math.MaxInt32
	}
	return max
}

// ---- aggregate functions ----

func (r *FunctionRegistry) registerAggregates() {
	r.register(FunctionDef{Name: "COUNT", Kind: KindAggregate, MinArgs: 1, MaxArgs: 1, Agg: aggCount})
	r.register(FunctionDef{Name: "SUM", Kind: KindAggregate, MinArgs: 1, MaxArgs: 1, Agg: aggSum})
	r.register(FunctionDef{Name: "AVG", Kind: KindAggregate, MinArgs: 1, MaxArgs: 2, Agg: aggAvg})
	r.register(FunctionDef{Name: "MIN", Kind: KindAggregate, MinArgs: 1, MaxArgs: 1, Agg: aggMin})
	r.register(FunctionDef{Name: "MAX", Kind: KindAggregate, MinArgs: 1, MaxArgs: 1, Agg: aggMax})
	r.register(FunctionDef{Name: "GROUP_CONCAT", Kind: KindAggregate, MinArgs: 1, MaxArgs: 2, Agg: aggGroupConcat})
}

func aggFieldName(args []interface{}) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	name, ok := args[0].(string)
	return name, ok
}

func aggCount(group []Row, args []interface{}) (interface{}, error) {
	field, _ := aggFieldName(args)
	if field == "" || field == "*" {
		return int64(len(group)), nil
	}
	var n int64
	for _, row := range group {
		v, err := GetPath(row, field, false)
		if err != nil {
			return nil, err
		}
		if v != nil {
			n++
		}
	}
	return n, nil
}

func aggNumericValues(group []Row, field string) ([]float64, error) {
	out := make([]float64, 0, len(group))
	for _, row := range group {
		v, err := GetPath(row, field, false)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func aggSum(group []Row, args []interface{}) (interface{}, error) {
	field, ok := aggFieldName(args)
	if !ok || field == "*" {
		return nil, parseErr("SUM(*) is not supported")
	}
	vals, err := aggNumericValues(group, field)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum, nil
}

func aggAvg(group []Row, args []interface{}) (interface{}, error) {
	field, ok := aggFieldName(args)
	if !ok || field == "*" {
		return nil, parseErr("AVG(*) is not supported")
	}
	decimals := 2
	if len(args) > 1 {
		if d, err := toInt64(args[1]); err == nil {
			decimals = int(d)
		}
	}
	vals, err := aggNumericValues(group, field)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return 0.0, nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return roundTo(sum/float64(len(vals)), decimals), nil
}

func aggMin(group []Row, args []interface{}) (interface{}, error) {
	field, ok := aggFieldName(args)
	if !ok || field == "*" {
		return nil, parseErr("MIN(*) is not supported")
	}
	return aggExtreme(group, field, -1)
}

func aggMax(group []Row, args []interface{}) (interface{}, error) {
	field, ok := aggFieldName(args)
	if !ok || field == "*" {
		return nil, parseErr("MAX(*) is not supported")
	}
	return aggExtreme(group, field, 1)
}

func aggExtreme(group []Row, field string, wantSign int) (interface{}, error) {
	var best interface{}
	for _, row := range group {
		v, err := GetPath(row, field, false)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if best == nil || CompareValues(v, best)*wantSign > 0 {
			best = v
		}
	}
	return best, nil
}

func aggGroupConcat(group []Row, args []interface{}) (interface{}, error) {
	field, ok := aggFieldName(args)
	if !ok {
		return nil, parseErr("GROUP_CONCAT requires a field argument")
	}
	sep := ","
	if len(args) > 1 {
		if s, ok := args[1].(string); ok {
			sep = s
		}
	}
	var parts []string
	for _, row := range group {
		v, err := GetPath(row, field, false)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		parts = append(parts, stringify(v))
	}
	return strings.Join(parts, sep), nil
}

// ---- string functions ----

func (r *FunctionRegistry) registerString() {
	r.register(FunctionDef{Name: "CONCAT", Kind: KindRow, MinArgs: 1, MaxArgs: -1, Row: func(args []interface{}) (interface{}, error) {
		var sb strings.Builder
		for _, a := range args {
			if a != nil {
				sb.WriteString(stringify(a))
			}
		}
		return sb.String(), nil
	}})
	r.register(FunctionDef{Name: "CONCAT_WS", Kind: KindRow, MinArgs: 2, MaxArgs: -1, Row: func(args []interface{}) (interface{}, error) {
		sep := stringify(args[0])
		var parts []string
		for _, a := range args[1:] {
			if a != nil {
				parts = append(parts, stringify(a))
			}
		}
		return strings.Join(parts, sep), nil
	}})
	r.register(FunctionDef{Name: "EXPLODE", Kind: KindRow, MinArgs: 2, MaxArgs: 2, Row: func(args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		parts := strings.Split(stringify(args[0]), stringify(args[1]))
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	}})
	r.register(FunctionDef{Name: "IMPLODE", Kind: KindRow, MinArgs: 2, MaxArgs: 2, Row: func(args []interface{}) (interface{}, error) {
		seq, ok := args[0].([]interface{})
		if !ok {
			return nil, typeErr("IMPLODE expects a sequence as its first argument")
		}
		sep := stringify(args[1])
		parts := make([]string, len(seq))
		for i, v := range seq {
			parts[i] = stringify(v)
		}
		return strings.Join(parts, sep), nil
	}})
	r.register(FunctionDef{Name: "LOWER", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: strFunc(strings.ToLower)})
	r.register(FunctionDef{Name: "UPPER", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: strFunc(strings.ToUpper)})
	r.register(FunctionDef{Name: "REVERSE", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: strFunc(reverseString)})
	r.register(FunctionDef{Name: "LENGTH", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: func(args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		return int64(len([]rune(stringify(args[0])))), nil
	}})
	r.register(FunctionDef{Name: "BASE64_ENCODE", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: strFunc(func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	})})
	r.register(FunctionDef{Name: "BASE64_DECODE", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: func(args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		b, err := base64.StdEncoding.DecodeString(stringify(args[0]))
		if err != nil {
			return nil, typeErr("BASE64_DECODE: invalid input: %v", err)
		}
		return string(b), nil
	}})
	r.register(FunctionDef{Name: "RANDOM_STRING", Kind: KindConst, MinArgs: 1, MaxArgs: 1, Row: func(args []interface{}) (interface{}, error) {
		n, err := toInt64(args[0])
		if err != nil {
			return nil, err
		}
		return randomString(int(n))
	}})
}

func strFunc(f func(string) string) RowEvaluator {
	return func(args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		return f(stringify(args[0])), nil
	}
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

const randomStringAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomString(n int) (string, error) {
	if n < 0 {
		n = 0
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = randomStringAlphabet[int(v)%len(randomStringAlphabet)]
	}
	return string(out), nil
}

// ---- math functions ----

func (r *FunctionRegistry) registerMath() {
	r.register(FunctionDef{Name: "CEIL", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: numFunc(math.Ceil)})
	r.register(FunctionDef{Name: "FLOOR", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: numFunc(math.Floor)})
	r.register(FunctionDef{Name: "ROUND", Kind: KindRow, MinArgs: 1, MaxArgs: 2, Row: func(args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return nil, err
		}
		precision := 0
		if len(args) > 1 {
			p, err := toInt64(args[1])
			if err != nil {
				return nil, err
			}
			precision = int(p)
		}
		return roundTo(f, precision), nil
	}})
	r.register(FunctionDef{Name: "MOD", Kind: KindRow, MinArgs: 2, MaxArgs: 2, Row: func(args []interface{}) (interface{}, error) {
		a, err := toInt64(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toInt64(args[1])
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, typeErr("MOD: division by zero")
		}
		return a % b, nil
	}})
}

func numFunc(f func(float64) float64) RowEvaluator {
	return func(args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		v, err := toFloat64(args[0])
		if err != nil {
			return nil, err
		}
		return f(v), nil
	}
}

func roundTo(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	mult := math.Pow(10, float64(decimals))
	return math.Round(v*mult) / mult
}

// ---- hash functions ----

func (r *FunctionRegistry) registerHash() {
	r.register(FunctionDef{Name: "MD5", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: hashFunc(func(b []byte) []byte {
		sum := md5.Sum(b)
		return sum[:]
	})})
	r.register(FunctionDef{Name: "SHA1", Kind: KindRow, MinArgs: 1, MaxArgs: 1, Row: hashFunc(func(b []byte) []byte {
		sum := sha1.Sum(b)
		return sum[:]
	})})
	r.register(FunctionDef{Name: "RANDOM_BYTES", Kind: KindConst, MinArgs: 1, MaxArgs: 1, Row: func(args []interface{}) (interface{}, error) {
		n, err := toInt64(args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			n = 0
		}
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		return hex.EncodeToString(b), nil
	}})
}

func hashFunc(f func([]byte) []byte) RowEvaluator {
	return func(args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		return hex.EncodeToString(f([]byte(stringify(args[0])))), nil
	}
}

// ---- utility functions ----

func (r *FunctionRegistry) registerUtility() {
	r.register(FunctionDef{Name: "COALESCE", Kind: KindRow, MinArgs: 1, MaxArgs: -1, Row: func(args []interface{}) (interface{}, error) {
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	}})
	r.register(FunctionDef{Name: "COALESCE_NE", Kind: KindRow, MinArgs: 1, MaxArgs: -1, Row: func(args []interface{}) (interface{}, error) {
		for _, a := range args {
			if a != nil && stringify(a) != "" {
				return a, nil
			}
		}
		return nil, nil
	}})
}
