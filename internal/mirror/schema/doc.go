// Package schema defines the task record mirrored from the remote todo API.
//
// # Wire Format
//
// Records travel as flat JSON objects. Field names are matched
// case-insensitively on input, so "userId", "userid" and "UserId" all decode
// into the same field:
//
//	{
//	  "id": 1,
//	  "userId": 1,
//	  "title": "delectus aut autem",
//	  "completed": false
//	}
//
// The remote API answers collection requests with a JSON array and single
// record requests with a JSON object. DecodeTasks accepts either shape.
//
// # Title Matching
//
// Title filters are case-insensitive substring matches. The same rule is used
// for the remote-direct read path and for the local mirror, so a query returns
// the same records regardless of where they are read from:
//
//	schema.TitleContains("Delectus aut autem", "DELECTUS") // true
//
// # Validation
//
// Records are validated with go-playground/validator struct tags:
//   - id must be positive (identifiers are assigned upstream)
//   - userId must not be negative
//   - title is at most 500 characters
package schema
