/*
Package session owns per-conversation state and turn serialisation.

Store keeps one slot per conversation (recent turns, user facts, the attached
media reference) behind its own mutex, so conversations never contend with
each other. Snapshots can be written through to a ports.ContextStore so a
conversation survives a restart.

Manager serialises whole turns of one conversation, optionally across
replicas through a ports.DistributedLocker.
*/
package session
