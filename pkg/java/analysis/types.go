package analysis

import (
	"strings"

	"github.com/sambeau/streamline/pkg/java/ast"
)

// Named returns a reference type with the given simple or qualified name.
func Named(name string, args ...*ast.TypeRef) *ast.TypeRef {
	return &ast.TypeRef{Name: name, Args: args}
}

// Prim returns a primitive type.
func Prim(name string) *ast.TypeRef {
	return &ast.TypeRef{Name: name, Primitive: true}
}

// ArrayOf returns t with one more dimension.
func ArrayOf(t *ast.TypeRef) *ast.TypeRef {
	c := *t
	c.Dims++
	c.Varargs = false
	return &c
}

// ComponentType strips one array dimension; nil when t is not an array.
func ComponentType(t *ast.TypeRef) *ast.TypeRef {
	if t == nil || (t.Dims == 0 && !t.Varargs) {
		return nil
	}
	c := *t
	if c.Varargs {
		c.Varargs = false
	} else {
		c.Dims--
	}
	return &c
}

var primitiveNames = map[string]bool{
	"boolean": true, "byte": true, "short": true, "char": true,
	"int": true, "long": true, "float": true, "double": true,
}

// IsPrimitive reports whether t is a non-array primitive type.
func IsPrimitive(t *ast.TypeRef) bool {
	return t != nil && t.Dims == 0 && !t.Varargs && (t.Primitive || primitiveNames[t.Name])
}

// IsArray reports whether t has at least one dimension.
func IsArray(t *ast.TypeRef) bool {
	return t != nil && (t.Dims > 0 || t.Varargs)
}

// IsPrimitiveNamed reports whether t is exactly the named primitive.
func IsPrimitiveNamed(t *ast.TypeRef, name string) bool {
	return IsPrimitive(t) && t.Name == name
}

var boxes = map[string]string{
	"boolean": "Boolean", "byte": "Byte", "short": "Short", "char": "Character",
	"int": "Integer", "long": "Long", "float": "Float", "double": "Double",
}

var unboxes = func() map[string]string {
	m := make(map[string]string, len(boxes))
	for p, b := range boxes {
		m[b] = p
		m["java.lang."+b] = p
	}
	return m
}()

// Boxed returns the wrapper class for a primitive, or t unchanged.
func Boxed(t *ast.TypeRef) *ast.TypeRef {
	if !IsPrimitive(t) {
		return t
	}
	return Named(boxes[t.Name])
}

// Unboxed returns the primitive for a wrapper class, or nil.
func Unboxed(t *ast.TypeRef) *ast.TypeRef {
	if t == nil || t.Dims > 0 {
		return nil
	}
	if p, ok := unboxes[t.Name]; ok {
		return Prim(p)
	}
	return nil
}

// IsBoxed reports whether t is a primitive wrapper class.
func IsBoxed(t *ast.TypeRef) bool { return Unboxed(t) != nil }

// NumericKind returns the primitive a numeric type promotes from, looking
// through boxing, or "" when t is not numeric.
func NumericKind(t *ast.TypeRef) string {
	if t == nil {
		return ""
	}
	if !IsPrimitive(t) {
		t = Unboxed(t)
		if t == nil {
			return ""
		}
	}
	switch t.Name {
	case "byte", "short", "char", "int", "long", "float", "double":
		return t.Name
	}
	return ""
}

var rank = map[string]int{"byte": 1, "short": 2, "char": 2, "int": 3, "long": 4, "float": 5, "double": 6}

// BinaryPromotion returns the result type of an arithmetic operator applied
// to operands of types a and b, or nil when either is not numeric.
func BinaryPromotion(a, b *ast.TypeRef) *ast.TypeRef {
	ka, kb := NumericKind(a), NumericKind(b)
	if ka == "" || kb == "" {
		return nil
	}
	k := ka
	if rank[kb] > rank[k] {
		k = kb
	}
	if rank[k] < rank["int"] {
		k = "int"
	}
	return Prim(k)
}

// UnaryPromotion widens byte, short and char to int.
func UnaryPromotion(t *ast.TypeRef) *ast.TypeRef {
	k := NumericKind(t)
	if k == "" {
		return nil
	}
	if rank[k] < rank["int"] {
		k = "int"
	}
	return Prim(k)
}

// IsString reports whether t is java.lang.String.
func IsString(t *ast.TypeRef) bool {
	return t != nil && t.Dims == 0 && (t.Name == "String" || t.Name == "java.lang.String")
}

// IsBoolean reports whether t is boolean or Boolean.
func IsBoolean(t *ast.TypeRef) bool {
	if t == nil || t.Dims > 0 {
		return false
	}
	return t.Name == "boolean" || t.Name == "Boolean" || t.Name == "java.lang.Boolean"
}

// SameType compares two types by their written form.
func SameType(a, b *ast.TypeRef) bool {
	if a == nil || b == nil {
		return false
	}
	return normalize(a) == normalize(b)
}

func normalize(t *ast.TypeRef) string {
	c := *t
	if c.Varargs {
		c.Varargs = false
		c.Dims++
	}
	c.Name = strings.TrimPrefix(c.Name, "java.lang.")
	return c.String()
}

var collectionNames = map[string]bool{
	"Collection": true, "List": true, "ArrayList": true, "LinkedList": true,
	"Set": true, "HashSet": true, "LinkedHashSet": true, "TreeSet": true,
	"SortedSet": true, "NavigableSet": true, "Queue": true, "Deque": true,
	"ArrayDeque": true, "PriorityQueue": true, "Vector": true, "Stack": true,
	"CopyOnWriteArrayList": true, "CopyOnWriteArraySet": true, "EnumSet": true,
	"ConcurrentLinkedQueue": true, "ConcurrentLinkedDeque": true,
	"LinkedBlockingQueue": true, "ArrayBlockingQueue": true, "BlockingQueue": true,
	"SequencedCollection": true, "SequencedSet": true, "ImmutableList": true,
	"ImmutableSet": true,
}

var listNames = map[string]bool{
	"List": true, "ArrayList": true, "LinkedList": true, "Vector": true,
	"Stack": true, "CopyOnWriteArrayList": true, "ImmutableList": true,
}

var setNames = map[string]bool{
	"Set": true, "HashSet": true, "LinkedHashSet": true, "TreeSet": true,
	"SortedSet": true, "NavigableSet": true, "EnumSet": true,
	"CopyOnWriteArraySet": true, "SequencedSet": true, "ImmutableSet": true,
}

var mapNames = map[string]bool{
	"Map": true, "HashMap": true, "LinkedHashMap": true, "TreeMap": true,
	"SortedMap": true, "NavigableMap": true, "ConcurrentHashMap": true,
	"ConcurrentMap": true, "EnumMap": true, "IdentityHashMap": true,
	"WeakHashMap": true, "Hashtable": true, "SequencedMap": true,
	"ConcurrentSkipListMap": true,
}

// IsCollection reports whether t is a known java.util collection type. Raw
// types are reported too; use ElementType to reject them.
func IsCollection(t *ast.TypeRef) bool {
	return t != nil && t.Dims == 0 && collectionNames[t.SimpleName()]
}

// IsList reports whether t is a known List implementation or interface.
func IsList(t *ast.TypeRef) bool {
	return t != nil && t.Dims == 0 && listNames[t.SimpleName()]
}

// IsSet reports whether t is a known Set implementation or interface.
func IsSet(t *ast.TypeRef) bool {
	return t != nil && t.Dims == 0 && setNames[t.SimpleName()]
}

// IsMap reports whether t is a known Map type.
func IsMap(t *ast.TypeRef) bool {
	return t != nil && t.Dims == 0 && mapNames[t.SimpleName()]
}

// ElementType returns the element of an array or a parameterised collection.
// Raw collections, diamonds and wildcards without a bound return nil.
func ElementType(t *ast.TypeRef) *ast.TypeRef {
	if t == nil {
		return nil
	}
	if IsArray(t) {
		return ComponentType(t)
	}
	if !IsCollection(t) && t.SimpleName() != "Iterable" {
		return nil
	}
	if len(t.Args) != 1 {
		return nil
	}
	return wildcardBound(t.Args[0])
}

func wildcardBound(t *ast.TypeRef) *ast.TypeRef {
	if t.Name != "?" {
		return t
	}
	if t.BoundKw == "extends" && t.Bound != nil {
		return t.Bound
	}
	return nil
}

// MapTypes returns key and value types of a parameterised map.
func MapTypes(t *ast.TypeRef) (key, value *ast.TypeRef) {
	if !IsMap(t) || len(t.Args) != 2 {
		return nil, nil
	}
	return wildcardBound(t.Args[0]), wildcardBound(t.Args[1])
}

// StreamClass names the stream specialisation that carries elements of type t:
// IntStream, LongStream, DoubleStream or Stream. Primitives with no stream
// specialisation return "".
func StreamClass(t *ast.TypeRef) string {
	if t == nil {
		return ""
	}
	if !IsPrimitive(t) {
		return "Stream"
	}
	switch t.Name {
	case "int":
		return "IntStream"
	case "long":
		return "LongStream"
	case "double":
		return "DoubleStream"
	}
	return ""
}

// IsSupportedStreamElement reports whether a stream can carry t without a
// lossy conversion.
func IsSupportedStreamElement(t *ast.TypeRef) bool {
	return StreamClass(t) != ""
}

// StreamKind collapses a type into the four stream shapes. Unsupported
// primitives travel boxed, so they map to "Stream".
func StreamKind(t *ast.TypeRef) string {
	if c := StreamClass(t); c != "" {
		return c
	}
	return "Stream"
}

// IsStringBuilder reports whether t is StringBuilder or StringBuffer.
func IsStringBuilder(t *ast.TypeRef) bool {
	if t == nil || t.Dims > 0 {
		return false
	}
	switch t.SimpleName() {
	case "StringBuilder", "StringBuffer":
		return true
	}
	return false
}

// IsClassName reports whether name looks like a type rather than a variable.
func IsClassName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
