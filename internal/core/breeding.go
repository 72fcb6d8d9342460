package core

import "kittycore/pkg/domain"

// CombineGenomes mixes two parent genomes bit by bit: wherever the selector has
// a 1 the child takes the bit from parent1, otherwise from parent2.
func CombineGenomes(parent1, parent2 Genome, selector [domain.GenomeSize]byte) Genome {
	var child Genome
	for i := range child {
		child[i] = combineGene(parent1[i], parent2[i], selector[i])
	}
	return child
}

func combineGene(gene1, gene2, selector byte) byte {
	return (selector & gene1) | (^selector & gene2)
}
