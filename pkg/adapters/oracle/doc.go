// Package oracle adapts hosted LLM APIs to ports.Oracle.
//
// The adapters only send the prompt and return the raw completion text;
// validating the answer against the worker names is the classifier's job.
package oracle
