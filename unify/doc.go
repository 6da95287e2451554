/*Package unify picks one representative alignment pair for every fragment
  of a read-name-sorted, paired-end BAM file whose multimapping alignments
  carry CSEM posterior probabilities.

  Input model:

  CSEM reports every candidate alignment of a fragment, and attaches to each
  record an aux field (ZW:f:p by default) holding the posterior probability p
  of that alignment. Records are sorted by name, so all the records of a
  fragment are contiguous, and the two ends of one candidate alignment are
  adjacent. A fragment therefore looks like

    name  R1 locus0 ZW:f:p0
    name  R2 locus0 ZW:f:p0
    name  R1 locus1 ZW:f:p1
    name  R2 locus1 ZW:f:p1
    ...

  Grouper turns the record stream into Fragments: an ordered list of
  candidate Pairs and, in parallel, the weight of the first record of each
  pair. Selector draws one candidate with probability proportional to its
  weight. Weights need not sum to one. A weight of exactly zero is replaced by
  a tiny positive value so that it remains selectable. Fragments with a single
  candidate are passed through without consulting the random source.

  Unify writes the chosen pair of every fragment to a new BAM file. Validate
  repeats the selection many times over the same input and tabulates how
  often each candidate was chosen, so that the observed frequencies can be
  compared against the posterior probabilities.
*/
package unify
