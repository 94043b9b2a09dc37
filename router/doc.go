// Package router defines the contract between the kalibr chat model and the
// external Kalibr Router that performs path selection and outcome learning.
// The Router implementation itself lives outside this repository; it plugs in
// through Register (database/sql-driver style) or is injected directly.
package router
