// Package mutate implements the mutation strategies applied to a decoded
// record sequence.
//
// Every strategy is deterministic given the state of the Source it is handed:
// no strategy reads the clock or any other ambient input, so a campaign that
// shares one seeded source across its strategies reproduces bit for bit.
//
// Strategies mutate the records in place and never add or remove records.
// They may leave records internally inconsistent (a size field that no
// longer matches the payload, a tag that no longer matches the size class);
// later strategies in the same chain see those records as they are.
package mutate
