// Package textchunk splits translated text into chunks small enough for a
// single speech-synthesis request.
//
// Splits happen only after sentence terminators (., !, ?) that are followed by
// whitespace. The terminator and the whitespace after it stay with the
// sentence they end, so joining the chunks reproduces the input exactly.
// Budgets count Unicode code points. A sentence longer than the budget is
// handled according to an OversizePolicy.
package textchunk
