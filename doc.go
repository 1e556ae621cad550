// Package neatengine is a Go implementation of the NeuroEvolution of Augmenting Topologies (NEAT) algorithm.
//
// NEAT evolves both the weights and the structure of neural networks. This engine speciates
// the population with genetic k-means clustering, allocates offspring to species in proportion
// to their fitness, and can regulate genome complexity by alternating between complexifying
// and simplifying phases.
//
// The packages are:
//
//	neat             genomes, innovation ledger, distance metrics, speciation, reproduction, population
//	neat/activation  activation functions and the factory that shares them
//	neat/nn          decoding genomes into acyclic or cyclic networks
//	neat/store       persistence of run summaries and champion genomes
//
// Basic usage:
//
//	config, err := neat.LoadConfig("configs/xor.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config, rand.New(rand.NewSource(1)))
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	decoder := nn.NewDecoder()
//	for i := 0; i < 100; i++ {
//		winner, err := pop.RunGeneration(ctx, func(ctx context.Context, g *neat.Genome) (neat.FitnessInfo, error) {
//			net, err := decoder.Decode(g)
//			if err != nil {
//				return neat.FitnessInfo{}, err
//			}
//			return neat.FitnessInfo{PrimaryFitness: score(net)}, nil
//		})
//		if err != nil {
//			log.Fatalf("Error running generation: %v", err)
//		}
//		if winner != nil {
//			fmt.Println("Solution found!")
//			break
//		}
//	}
package neatengine
