package parser

import "strings"

// Reserved reports whether name is a statement keyword or an intrinsic
// procedure rather than a user symbol.
func Reserved(name string) bool {
	name = strings.ToLower(name)
	return isIntrinsic(name) || isKeyword(name)
}

func isIntrinsic(name string) bool {
	_, ok := intrinsics[name]
	return ok
}

// isKeyword reports statement keywords that look like calls once their
// parentheses are collapsed.
func isKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

var keywords = set(
	"if", "elseif", "then", "else", "while", "do", "select", "case", "selectcase",
	"where", "elsewhere", "forall", "associate", "print", "write", "read", "open",
	"close", "inquire", "rewind", "backspace", "endfile", "flush", "wait",
	"allocate", "deallocate", "nullify", "return", "stop", "error", "call",
	"go", "goto", "format", "continue", "cycle", "exit", "sync", "lock",
	"unlock", "result", "type", "class", "is", "default", "block", "end",
	"and", "or", "not", "eqv", "neqv", "true", "false", "eq", "ne", "lt", "le",
	"gt", "ge", "rank", "change", "team", "critical", "concurrent", "entry",
	"pause", "assign", "to", "sequence", "contains", "implicit", "none",
	"use", "only", "operator", "assignment", "include", "import",
)

var intrinsics = set(
	"abs", "achar", "acos", "acosh", "adjustl", "adjustr", "aimag", "aint",
	"all", "allocated", "anint", "any", "asin", "asinh", "associated", "atan",
	"atan2", "atanh", "atomic_add", "atomic_and", "atomic_cas", "atomic_define",
	"atomic_fetch_add", "atomic_fetch_and", "atomic_fetch_or", "atomic_fetch_xor",
	"atomic_or", "atomic_ref", "atomic_xor", "bessel_j0", "bessel_j1",
	"bessel_jn", "bessel_y0", "bessel_y1", "bessel_yn", "bge", "bgt",
	"bit_size", "ble", "blt", "btest", "c_associated", "c_f_pointer",
	"c_f_procpointer", "c_funloc", "c_loc", "c_sizeof", "ceiling", "char",
	"cmplx", "co_broadcast", "co_max", "co_min", "co_reduce", "co_sum",
	"command_argument_count", "compiler_options", "compiler_version",
	"conjg", "cos", "cosh", "count", "cpu_time", "cshift", "date_and_time",
	"dble", "dcmplx", "digits", "dim", "dot_product", "dprod", "dshiftl",
	"dshiftr", "eoshift", "epsilon", "erf", "erfc", "erfc_scaled",
	"event_query", "execute_command_line", "exp", "exponent",
	"extends_type_of", "findloc", "float", "floor", "fraction", "gamma",
	"get_command", "get_command_argument", "get_environment_variable",
	"huge", "hypot", "iachar", "iall", "iand", "iany", "ibclr", "ibits",
	"ibset", "ichar", "ieor", "image_index", "index", "int", "ior", "iparity",
	"is_contiguous", "is_iostat_end", "is_iostat_eor", "ishft", "ishftc",
	"kind", "lbound", "lcobound", "leadz", "len", "len_trim", "lge", "lgt",
	"lle", "llt", "log", "log10", "log_gamma", "logical", "maskl", "maskr",
	"matmul", "max", "maxexponent", "maxloc", "maxval", "merge", "merge_bits",
	"min", "minexponent", "minloc", "minval", "mod", "modulo", "move_alloc",
	"mvbits", "nearest", "new_line", "nint", "norm2", "not", "null",
	"num_images", "out_of_range", "pack", "parity", "popcnt", "poppar",
	"precision", "present", "product", "radix", "random_init",
	"random_number", "random_seed", "range", "real", "reduce", "repeat",
	"reshape", "rrspacing", "same_type_as", "scale", "scan",
	"selected_char_kind", "selected_int_kind", "selected_real_kind",
	"set_exponent", "shape", "shifta", "shiftl", "shiftr", "sign", "sin",
	"sinh", "size", "sngl", "spacing", "spread", "sqrt", "storage_size",
	"sum", "system_clock", "tan", "tanh", "this_image", "tiny", "trailz",
	"transfer", "transpose", "trim", "ubound", "ucobound", "unpack",
	"verify", "dabs", "dsqrt", "dexp", "dlog", "dsin", "dcos", "dtan",
	"iabs", "idint", "ifix", "amax1", "amin1", "max0", "min0", "dmax1",
	"dmin1", "character", "integer", "complex", "double", "precision",
)

func set(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}
