// Package driver provides a database/sql driver that exposes workbooks as SQL tables.
//
// Every worksheet of a workbook (auto-detected bounds, first row as header)
// and every workbook scoped named region is read into a DataFrame and
// loaded as a typed table into an in-memory SQLite database. Column types
// follow the DataFrame: Boolean columns become BOOLEAN, Numeric columns REAL,
// DateTime columns DATETIME and String columns TEXT. Missing entries become NULL.
//
// Usage:
//
//	import _ "github.com/nao1215/xlframe/driver"
//
//	db, err := sql.Open("xlframe", "sales.xlsx")
//	rows, err := db.Query(`SELECT region, SUM(amount) FROM "Orders" GROUP BY region`)
//	df, warnings, err := driver.QueryFrame(rows)
//
// The data source name is a workbook path, a directory of workbooks, or
// several of them separated by semicolons. Compressed workbooks
// (.gz, .bz2, .xz, .zst) are accepted.
package driver
