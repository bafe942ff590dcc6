// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package schema names the tables and columns of the relational store.

Repositories build their column lists from these definitions so that a
renamed column is changed in exactly one place.
*/
package schema

import "strings"

// join renders a column list for SELECT and RETURNING clauses.
func join(columns []string) string {
	return strings.Join(columns, ", ")
}
