// Package linsolve implements matrix-based probabilistic linear solvers.
// These are iterative methods that solve a linear system A x = b while
// maintaining Gaussian beliefs over the system matrix A, its inverse
// H = A^-1 and the solution x. Each iteration probes A with one
// matrix-vector product and conditions the beliefs on the observation, so
// the returned posteriors carry calibrated uncertainty that contracts as
// observations accumulate.
//
// Two solver variants are provided: Solve for noise-free observations of a
// symmetric system, and SolveNoisy / SolveNoisyBelief for systems where each
// matrix-vector product is itself a random draw.
//
// The approach follows
// Hennig, Probabilistic Interpretation of Linear Solvers, SIAM J. Optim. 2015,
// https://epubs.siam.org/doi/10.1137/140955501 and
// Wenger and Hennig, Probabilistic Linear Solvers for Machine Learning, 2020,
// https://arxiv.org/abs/2010.09691.
package linsolve
