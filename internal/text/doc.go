// Package text provides the tokenizer, n-gram and token classification
// helpers used by the stock pipeline modules.
package text
