// Package expr parses and evaluates the expression language used by
// production preconditions (Cond) and set instructions (Expr).
//
// Grammar, lowest precedence first:
//
//	or      = and { ("or" | "||") and }
//	and     = not { ("and" | "&&") not }
//	not     = ("not" | "!") not | compare
//	compare = sum [ ("==" | "!=" | "<" | "<=" | ">" | ">=") sum ]
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/" | "%") unary }
//	unary   = "-" unary | primary
//	primary = number | string | "True" | "False" | "null" | attr | "(" or ")"
//	attr    = ident "." ident { "." ident }
//
// An attr term names a node reference and an attribute; everything before
// the last dot is the reference. Evaluation is strictly typed: arithmetic
// needs numbers (or two strings for "+"), ordering needs two numbers or
// two strings, and logical operators need booleans.
package expr
