// Package ingest converts raw uploads into plain UTF-8 text for the pipeline.
//
// Bodies are sniffed with mimetype; anything that is not a text type is
// rejected. Non-UTF-8 text is transcoded using the declared charset or, when
// none is declared, the one chardet guesses. HTML is parsed with goquery and
// reduced to the text of its title and body.
package ingest
