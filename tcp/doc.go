// Package tcp implements suspendable TCP operations for taskloop tasks, on
// non-blocking sockets.
//
// Each operation first attempts the non-blocking syscall. If it would block,
// the operation registers interest with the task's executor (readable for
// [Listener.Accept] and [Stream.Read], writable for [Stream.Write] and
// [Dial]), suspends the task, and retries once resumed. The registration is
// released when the operation returns, including when the task is abandoned.
//
// Transfers may be partial: callers loop to fill or drain a buffer. A Read
// of a non-empty buffer that returns zero bytes, and no error, indicates
// that the peer closed the connection.
//
// OS errors are returned as [*os.SyscallError] values, so may be matched
// using errors.Is, e.g. against unix.EADDRINUSE.
package tcp
