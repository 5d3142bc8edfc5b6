/*
Package modules holds the stock pipeline modules, one per output slot:

	language   writes the detected language ("Czech", "English" or "unknown")
	sentiment  writes Positive, Negative or Neutral
	topic      writes the dominant phrase of the input
	response   writes a reply built from the other three slots

Modules run newest first, so a pipeline that should execute in
DefaultPipeline order is registered in reverse. The pipeline package does
this for manifests.
*/
package modules
