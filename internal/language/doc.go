// Package language resolves target language names to BCP-47 codes and
// converts those codes to the forms each backend expects.
//
// Speech synthesis takes the full regional code (fr-FR, cmn-CN), speech
// recognition wants the two-letter base, and prompts use an English display
// name. Parsing and display names come from golang.org/x/text.
package language
