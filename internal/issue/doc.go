// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error types with corrective
// suggestions. Every terminal failure in the CLI is surfaced through an
// ActionableError so the operator always gets an actionable next step.
package issue
