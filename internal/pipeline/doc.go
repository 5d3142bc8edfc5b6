/*
Package pipeline loads a module manifest and keeps an orchestrator in sync
with it.

A manifest lists modules in the order they should run:

	modules:
	  - kind: language
	  - kind: sentiment
	  - name: topics
	    kind: topic
	  - kind: response

YAML, TOML and JSON are accepted; the format follows the file extension.
*/
package pipeline
